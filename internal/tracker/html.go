package tracker

import (
	"strings"

	"golang.org/x/net/html"
)

// stripHTML extracts the plain text from an HTML fragment. Tracker
// description, repro-steps and acceptance-criteria fields arrive as HTML.
// Script and style contents are dropped and whitespace is collapsed.
func stripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		// Malformed input: fall back to the raw text with tags crudely removed
		return collapseWhitespace(naiveStrip(fragment))
	}

	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
			builder.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseWhitespace(builder.String())
}

// naiveStrip removes anything between angle brackets.
func naiveStrip(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
				builder.WriteByte(' ')
			}
		case depth == 0:
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// collapseWhitespace normalizes all runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
