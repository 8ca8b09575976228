package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts text into chunks of at most Size characters, preferring to
// break after whitespace found in the last quarter of a window.
type Splitter struct {
	Size int
}

func NewSplitter(size int) *Splitter {
	if size <= 0 {
		size = 4500
	}
	return &Splitter{Size: size}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.Size+1)
	for start := 0; start < len(runes); {
		end := start + s.Size
		if end >= len(runes) {
			end = len(runes)
		} else if cut := breakPoint(runes[start:end], s.Size/4); cut > 0 {
			end = start + cut
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		start = end
	}
	return out
}

// breakPoint returns the offset just past the last whitespace within the
// trailing window of the slice, or 0 when there is none.
func breakPoint(window []rune, lookback int) int {
	floor := len(window) - lookback
	for i := len(window) - 1; i >= floor && i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return 0
}
