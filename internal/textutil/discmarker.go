package textutil

import (
	"strconv"
	"strings"
)

// discNumberKeywords introduce a disc index in a file or directory name.
// Longer keywords come first so "disk" is not read as "dis" + "k".
var discNumberKeywords = []string{"volume", "disc", "disk", "cd"}

var discMarkerKeywords = []string{"disc"}

// DiscMarker locates a disc marker inside a name.
type DiscMarker struct {
	Start  int
	End    int
	Number int
	Paren  bool
}

// DiscNumber extracts the disc index from a name such as "Game (Disc 2)",
// "game_cd3.bin" or "Game Volume 4". Names without a marker are disc 1.
func DiscNumber(name string) int {
	if m, ok := findMarker(name, discNumberKeywords, false); ok {
		return m.Number
	}
	return 1
}

// FindParenDiscMarker finds a "(Disc N)" marker, also accepting "(Disc N of M)".
func FindParenDiscMarker(name string) (DiscMarker, bool) {
	return findMarker(name, discMarkerKeywords, true)
}

// FindDiscMarker finds a "(Disc N)" marker or, failing that, a bare "Disc N".
func FindDiscMarker(name string) (DiscMarker, bool) {
	if m, ok := findMarker(name, discMarkerKeywords, true); ok {
		return m, true
	}
	return findMarker(name, discMarkerKeywords, false)
}

// StripDiscMarker removes the first disc marker from name and tidies the
// separators left behind. Names without a marker are returned trimmed.
func StripDiscMarker(name string) string {
	m, ok := FindDiscMarker(name)
	if !ok {
		return strings.TrimSpace(name)
	}
	head := strings.TrimRight(name[:m.Start], " -_,")
	tail := strings.TrimLeft(name[m.End:], " -_,")
	joined := head
	if head != "" && tail != "" {
		joined += " "
	}
	joined += tail
	return strings.Join(strings.Fields(joined), " ")
}

func findMarker(s string, keywords []string, paren bool) (DiscMarker, bool) {
	for i := 0; i < len(s); i++ {
		j := i
		if paren {
			if s[i] != '(' {
				continue
			}
			j = skipSpaces(s, i+1)
		} else if i > 0 && isAlnum(s[i-1]) {
			continue
		}
		for _, kw := range keywords {
			if !hasPrefixFold(s[j:], kw) {
				continue
			}
			k := j + len(kw)
			if k < len(s) && isLetter(s[k]) {
				continue
			}
			k = skipSeparators(s, k)
			number, next, ok := readNumber(s, k)
			if !ok {
				continue
			}
			end := next
			if paren {
				end = skipSpaces(s, end)
				if hasPrefixFold(s[end:], "of") {
					if _, after, ok := readNumber(s, skipSpaces(s, end+2)); ok {
						end = skipSpaces(s, after)
					}
				}
				if end >= len(s) || s[end] != ')' {
					continue
				}
				end++
			}
			return DiscMarker{Start: i, End: end, Number: number, Paren: paren}, true
		}
	}
	return DiscMarker{}, false
}

func readNumber(s string, i int) (int, int, bool) {
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i {
		return 0, i, false
	}
	n, err := strconv.Atoi(s[i:j])
	if err != nil {
		return 0, i, false
	}
	return n, j, true
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

func skipSeparators(s string, i int) int {
	for i < len(s) && strings.IndexByte(" -_.#", s[i]) >= 0 {
		i++
	}
	return i
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9')
}
