package transcript

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Layout describes the page geometry of an exported transcript. Heights are
// abstract vertical units; LineWidth is in characters.
type Layout struct {
	Title      string
	LineWidth  int
	PageHeight int
	FirstTop   int
	PageTop    int
	LineHeight int
	EntryGap   int
}

// DefaultLayout matches the A4-style report used by interview exports.
func DefaultLayout() Layout {
	return Layout{
		Title:      "AI Interview Transcript",
		LineWidth:  90,
		PageHeight: 280,
		FirstTop:   30,
		PageTop:    20,
		LineHeight: 7,
		EntryGap:   5,
	}
}

// Page is one page of an exported document. Blocks holds the wrapped lines of
// each entry placed on the page, in order.
type Page struct {
	Number int        `json:"number"`
	Blocks [][]string `json:"blocks"`
}

// Document is a paginated rendering of a transcript.
type Document struct {
	Title string `json:"title"`
	Pages []Page `json:"pages"`
}

// Export renders each entry as "{Speaker}: {text}", wraps it to the layout
// width, and paginates. An entry's lines never span a page break.
func Export(entries []Entry, layout Layout) Document {
	layout = layout.withDefaults()
	doc := Document{Title: layout.Title}

	page := Page{Number: 1}
	y := layout.FirstTop
	for _, entry := range entries {
		lines := wrap(formatEntry(entry), layout.LineWidth)
		height := len(lines) * layout.LineHeight

		if y+height > layout.PageHeight && len(page.Blocks) > 0 {
			doc.Pages = append(doc.Pages, page)
			page = Page{Number: page.Number + 1}
			y = layout.PageTop
		}

		page.Blocks = append(page.Blocks, lines)
		y += height + layout.EntryGap
	}
	doc.Pages = append(doc.Pages, page)

	return doc
}

// Lines flattens the page into printable lines with a blank line between
// entries.
func (p Page) Lines() []string {
	var out []string
	for i, block := range p.Blocks {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, block...)
	}
	return out
}

// Render produces the plain-text report: the title heads the first page and
// pages are separated by form feeds.
func (d Document) Render() []byte {
	var buf bytes.Buffer
	for i, page := range d.Pages {
		if i == 0 {
			if d.Title != "" {
				buf.WriteString(d.Title)
				buf.WriteString("\n\n")
			}
		} else {
			buf.WriteString("\f")
		}
		for _, line := range page.Lines() {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

func formatEntry(entry Entry) string {
	return fmt.Sprintf("%s: %s", entry.Speaker, strings.TrimSpace(entry.Text))
}

func wrap(text string, width int) []string {
	wrapped := ansi.Wrap(text, width, "")
	raw := strings.Split(wrapped, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " ")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, strings.TrimSpace(text))
	}
	return lines
}

func (l Layout) withDefaults() Layout {
	def := DefaultLayout()
	if l.LineWidth <= 0 {
		l.LineWidth = def.LineWidth
	}
	if l.LineHeight <= 0 {
		l.LineHeight = def.LineHeight
	}
	if l.PageHeight <= 0 {
		l.PageHeight = def.PageHeight
	}
	if l.FirstTop < 0 {
		l.FirstTop = def.FirstTop
	}
	if l.PageTop < 0 {
		l.PageTop = def.PageTop
	}
	if l.EntryGap < 0 {
		l.EntryGap = def.EntryGap
	}
	return l
}
