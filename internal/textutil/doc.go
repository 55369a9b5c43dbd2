// Package textutil provides name handling shared by the scanner, the
// consolidator, and the name repair step.
//
// The primary use cases are:
//   - Validating and repairing title directory names against the device rules
//   - Locating "(Disc N)" style markers and deriving base names and disc numbers
//   - Sanitizing filenames and path tokens for safe filesystem use
package textutil
