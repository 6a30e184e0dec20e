package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/grtinfo/grtinfo/format"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
)

// Printer writes reports to w using a fixed clock, so that ages and
// remaining times are consistent across one run.
type Printer struct {
	w   io.Writer
	S   format.Styles
	Now time.Time
}

func NewPrinter(w io.Writer, styles format.Styles) *Printer {
	return &Printer{w: w, S: styles, Now: time.Now()}
}

func (p *Printer) printf(f string, args ...any) {
	fmt.Fprintf(p.w, f, args...)
}

func (p *Printer) println(parts ...string) {
	fmt.Fprintln(p.w, strings.Join(parts, ""))
}

func (p *Printer) section(title string) {
	p.println(p.S.Section(title))
}

func (p *Printer) dim(s string) string    { return p.S.Dim.Render(s) }
func (p *Printer) bold(s string) string   { return p.S.Bold.Render(s) }
func (p *Printer) green(s string) string  { return p.S.Green.Render(s) }
func (p *Printer) red(s string) string    { return p.S.Red.Render(s) }
func (p *Printer) yellow(s string) string { return p.S.Yellow.Render(s) }
func (p *Printer) cyan(s string) string   { return p.S.Cyan.Render(s) }
func (p *Printer) white(s string) string  { return p.S.White.Render(s) }
func (p *Printer) magenta(s string) string {
	return p.S.Magenta.Render(s)
}

// star marks rows belonging to the configured indexer.
func (p *Printer) star(mine bool) string {
	if mine {
		return p.yellow("★")
	}
	return " "
}

func (p *Printer) deployment(d *networksubgraph.Deployment) string {
	if d == nil || d.IPFSHash == "" {
		return "?"
	}
	return p.S.DeploymentLink(d.IPFSHash, d.SubgraphID())
}
