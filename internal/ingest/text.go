package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CleanText turns scraped review markup into plain text. Tags are dropped,
// entities decoded, script and style bodies removed, and runs of whitespace
// collapsed to a single space. Line breaks become spaces.
func CleanText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return collapseSpace(raw)
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(raw), body)
	if err != nil {
		return collapseSpace(raw)
	}

	var buf strings.Builder
	for _, n := range nodes {
		visibleText(n, &buf)
	}
	return collapseSpace(buf.String())
}

func visibleText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Template:
			return
		case atom.Br, atom.P, atom.Div, atom.Li:
			buf.WriteByte(' ')
		}
	}

	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(c, buf)
	}
}

// collapseSpace trims s and replaces every run of Unicode whitespace,
// including non-breaking spaces, with one ASCII space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
