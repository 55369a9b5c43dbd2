// Package merge concatenates a title's track files into the single
// <directory>.bin the loader expects and rewrites the CUE sheet to match.
//
// Sources are copied in sheet order into a temporary file in the title
// directory. Only after the merged image and the new sheet are fully written
// are the original track files removed.
package merge
