// Package render prints rankings and profiles as terminal tables and draws
// the feature plots.
package render

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ranking"
)

// Infinity is how an unbounded distance is printed.
const Infinity = "∞"

// Styles holds the table styling.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Number lipgloss.Style
	Border lipgloss.Style
	Muted  lipgloss.Style
}

// DefaultStyles creates the default style set using the default renderer.
func DefaultStyles() Styles {
	return NewStyles(lipgloss.DefaultRenderer())
}

// NewStyles creates the style set using the given renderer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("62")),
		Header: r.NewStyle().Bold(true).Padding(0, 1),
		Cell:   r.NewStyle().Padding(0, 1),
		Number: r.NewStyle().Padding(0, 1).Align(lipgloss.Right),
		Border: r.NewStyle().Foreground(lipgloss.Color("240")),
		Muted:  r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Printer writes tables to an output stream.
type Printer struct {
	w      io.Writer
	styles Styles
}

// NewPrinter returns a printer writing to w with the default styles.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: DefaultStyles()}
}

// WithStyles replaces the printer's styles.
func (p *Printer) WithStyles(s Styles) *Printer {
	p.styles = s
	return p
}

// FormatDistance prints a distance with four decimals, or ∞.
func FormatDistance(d float64) string {
	if math.IsInf(d, 1) {
		return Infinity
	}
	return strconv.FormatFloat(d, 'f', 4, 64)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	if math.IsInf(v, 1) {
		return Infinity
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// newTable builds a bordered table. numeric marks right-aligned columns.
func (p *Printer) newTable(headers []string, numeric map[int]bool) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.Border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.Header
			}
			if numeric[col] {
				return p.styles.Number
			}
			return p.styles.Cell
		})
}

func (p *Printer) write(title string, t *table.Table) error {
	if title != "" {
		if _, err := fmt.Fprintln(p.w, p.styles.Title.Render(title)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(p.w, t.String())
	return err
}

// Ranking prints ranked tracks, closest first as given.
func (p *Printer) Ranking(title string, items []ranking.Scored) error {
	t := p.newTable([]string{"#", "Track", "Artists", "Distance"}, map[int]bool{0: true, 3: true})
	for i, s := range items {
		t.Row(strconv.Itoa(i+1), s.Track.Title, s.Track.ArtistNames(), FormatDistance(s.Distance))
	}
	return p.write(title, t)
}

// Breakdown prints one track's per-attribute contributions.
func (p *Printer) Breakdown(track domain.Track, b ranking.Breakdown) error {
	title := fmt.Sprintf("%s  distance %s", track, FormatDistance(b.Distance))
	if b.Unresolved {
		_, err := fmt.Fprintf(p.w, "%s\n%s\n", p.styles.Title.Render(title), p.styles.Muted.Render("no audio features available for this track"))
		return err
	}

	t := p.newTable([]string{"Attribute", "Value", "Mean", "Std dev", "Score", "Note"},
		map[int]bool{1: true, 2: true, 3: true, 4: true})
	for _, c := range b.Contributions {
		note := ""
		if c.Condition != ranking.ConditionNone {
			note = c.Condition.String()
		}
		t.Row(c.Attribute, formatValue(c.Value), formatValue(c.Stats.Mean), formatValue(c.Stats.StdDev), FormatDistance(c.Score), note)
	}
	return p.write(title, t)
}

// Profile prints per-attribute statistics. population is the number of
// tracks the profile was built from.
func (p *Printer) Profile(title string, prof ranking.Profile, population int) error {
	t := p.newTable([]string{"Attribute", "Mean", "Std dev", "Count"}, map[int]bool{1: true, 2: true, 3: true})
	for _, attr := range prof.Attributes() {
		s, _ := prof.Get(attr)
		t.Row(attr, formatValue(s.Mean), formatValue(s.StdDev), fmt.Sprintf("%d/%d", s.Count, population))
	}
	return p.write(title, t)
}
