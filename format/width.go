package format

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// StripANSI removes color and hyperlink escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// DisplayWidth is the number of terminal cells s occupies.
func DisplayWidth(s string) int {
	return ansi.StringWidth(s)
}

func PadRight(s string, width int) string {
	if pad := width - DisplayWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

func PadLeft(s string, width int) string {
	if pad := width - DisplayWidth(s); pad > 0 {
		return strings.Repeat(" ", pad) + s
	}
	return s
}

// Truncate shortens plain text to at most n runes, ending with tail.
func Truncate(s string, n int, tail string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	keep := n - len([]rune(tail))
	if keep < 0 {
		keep = 0
	}
	return string(r[:keep]) + tail
}

// TruncateLeft shortens plain text to at most n runes, cutting from the
// front and prefixing head.
func TruncateLeft(s string, n int, head string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	keep := n - len([]rune(head))
	if keep < 0 {
		keep = 0
	}
	return head + string(r[len(r)-keep:])
}
