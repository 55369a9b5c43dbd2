package textutil

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxNameLength is the longest title directory name the device accepts,
	// counted in characters.
	MaxNameLength = 60
	// ForbiddenNameChars lists characters a title directory name must not contain.
	ForbiddenNameChars = `./\:*?"<>|`
	// NameReplacement substitutes every forbidden character during repair.
	NameReplacement = '_'
)

// NameError explains why a title directory name was rejected.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

// ValidateName checks a title directory name against the device rules.
// It returns a *NameError describing the first problem found.
func ValidateName(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "name is empty"}
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return &NameError{Name: name, Reason: fmt.Sprintf("%d characters exceeds the %d character limit", n, MaxNameLength)}
	}
	if i := strings.IndexAny(name, ForbiddenNameChars); i >= 0 {
		return &NameError{Name: name, Reason: fmt.Sprintf("contains forbidden character %q", name[i])}
	}
	return nil
}

// RepairName returns a name ValidateName accepts: the input is NFC
// normalized, forbidden characters become underscores, and the result is cut
// to MaxNameLength characters. An empty name becomes a single
// NameReplacement. Repairing a repaired name is a no-op.
func RepairName(name string) string {
	name = norm.NFC.String(name)
	var b strings.Builder
	b.Grow(len(name))
	count := 0
	for _, r := range name {
		if count == MaxNameLength {
			break
		}
		if strings.ContainsRune(ForbiddenNameChars, r) {
			r = NameReplacement
		}
		b.WriteRune(r)
		count++
	}
	if count == 0 {
		return string(NameReplacement)
	}
	return b.String()
}
