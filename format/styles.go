package format

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/grtinfo/grtinfo/constants"
)

// Styles is the report palette. Hyperlinks are emitted only alongside
// colors.
type Styles struct {
	Bold    lipgloss.Style
	Dim     lipgloss.Style
	Green   lipgloss.Style
	Red     lipgloss.Style
	Yellow  lipgloss.Style
	Cyan    lipgloss.Style
	Magenta lipgloss.Style
	White   lipgloss.Style
	Header  lipgloss.Style

	Hyperlinks bool
}

// IsTerminal reports whether w is a character device.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewStyles builds the palette for w. Colors are off when w is not a
// terminal or color is false.
func NewStyles(w io.Writer, color bool) Styles {
	r := lipgloss.NewRenderer(w)
	enabled := color && IsTerminal(w)
	if !enabled {
		r.SetColorProfile(termenv.Ascii)
	}

	return Styles{
		Bold:    r.NewStyle().Bold(true),
		Dim:     r.NewStyle().Faint(true),
		Green:   r.NewStyle().Foreground(lipgloss.Color("10")),
		Red:     r.NewStyle().Foreground(lipgloss.Color("9")),
		Yellow:  r.NewStyle().Foreground(lipgloss.Color("11")),
		Cyan:    r.NewStyle().Foreground(lipgloss.Color("14")),
		Magenta: r.NewStyle().Foreground(lipgloss.Color("13")),
		White:   r.NewStyle().Foreground(lipgloss.Color("15")),
		Header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),

		Hyperlinks: enabled,
	}
}

// PlainStyles renders nothing but text.
func PlainStyles() Styles {
	return NewStyles(io.Discard, false)
}

// TerminalLink wraps text in an OSC 8 hyperlink.
func TerminalLink(url, text string) string {
	return "\x1b]8;;" + url + "\x1b\\" + text + "\x1b]8;;\x1b\\"
}

// Link is TerminalLink when hyperlinks are on, otherwise just text.
func (s Styles) Link(url, text string) string {
	if !s.Hyperlinks || url == "" {
		return text
	}
	return TerminalLink(url, text)
}

// DeploymentURL is the explorer page of a subgraph, or "" when unknown.
func DeploymentURL(subgraphID string) string {
	if subgraphID == "" {
		return ""
	}
	return fmt.Sprintf("%s%s?view=Query&chain=%s", constants.ExplorerSubgraphURL, subgraphID, constants.ExplorerChain)
}

// DeploymentLink renders the Qm hash, linked to the explorer when the
// subgraph id is known.
func (s Styles) DeploymentLink(ipfsHash, subgraphID string) string {
	return s.Link(DeploymentURL(subgraphID), ipfsHash)
}

// Section renders a section title preceded by a blank line.
func (s Styles) Section(title string) string {
	rule := strings.Repeat("─", DisplayWidth(title))
	return "\n" + s.Header.Render(title) + "\n" + s.Dim.Render(rule)
}
