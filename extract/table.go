package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockTags start a new line when rendering cell text.
var blockTags = map[string]struct{}{
	"div": {}, "p": {}, "li": {}, "tr": {}, "section": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

// TableRows parses rendered HTML and returns the text of every cell of
// every row matched by rowSel. Rows with no cells are kept as empty
// slices so the caller can count them as malformed.
func TableRows(rawHTML, rowSel, cellSel string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse table html: %w", err)
	}

	rows := make([][]string, 0)
	doc.Find(rowSel).Each(func(_ int, row *goquery.Selection) {
		cells := make([]string, 0)
		row.Find(cellSel).Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, CellText(cell))
		})
		rows = append(rows, cells)
	})
	return rows, nil
}

// CellText renders a cell the way a browser's innerText would, roughly:
// runs of whitespace collapse, and <br> or block children break lines.
func CellText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		// Source line breaks are layout, not content.
		b.WriteString(strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == '\t' {
				return ' '
			}
			return r
		}, n.Data))
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "script", "style":
			return
		}
	}

	_, block := blockTags[n.Data]
	if block && n.Type == html.ElementNode {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block && n.Type == html.ElementNode {
		b.WriteByte('\n')
	}
}
