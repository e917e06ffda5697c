// Package richtext flattens markdown and HTML fragments into plain
// text lines suitable for drawing into a page. Structure that cannot be
// represented (emphasis, links) degrades to its visible text.
package richtext

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	mdtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FlattenMarkdown parses a markdown fragment and returns one plain line
// per block: headings and paragraphs become single lines, list items
// become bulleted lines.
func FlattenMarkdown(source string) []string {
	md := goldmark.New()
	src := []byte(source)
	doc := md.Parser().Parse(mdtext.NewReader(src))

	var lines []string
	collectMarkdown(doc, src, &lines, "")
	return lines
}

func collectMarkdown(node ast.Node, source []byte, lines *[]string, prefix string) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Heading:
			appendLine(lines, prefix+string(n.Text(source)))
		case *ast.Paragraph:
			appendLine(lines, prefix+string(n.Text(source)))
		case *ast.List:
			collectMarkdown(n, source, lines, prefix)
		case *ast.ListItem:
			collectListItem(n, source, lines, prefix)
		case *ast.Blockquote:
			collectMarkdown(n, source, lines, prefix)
		case *ast.TextBlock:
			appendLine(lines, prefix+string(n.Text(source)))
		}
	}
}

func collectListItem(n *ast.ListItem, source []byte, lines *[]string, prefix string) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.List:
			// nested list: indent one level
			collectMarkdown(c, source, lines, prefix+"  ")
		default:
			appendLine(lines, prefix+"• "+string(c.Text(source)))
		}
	}
}

func appendLine(lines *[]string, line string) {
	line = strings.TrimSpace(line)
	if line != "" {
		*lines = append(*lines, line)
	}
}

// FlattenHTML extracts the visible text of an HTML fragment, inserting
// line breaks at block-level boundaries.
func FlattenHTML(source string) (string, error) {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var b strings.Builder
	walkHTML(doc, &b)
	return collapseBlankLines(b.String()), nil
}

func walkHTML(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(strings.Join(strings.Fields(n.Data), " "))
		if strings.TrimSpace(n.Data) != "" {
			b.WriteString(" ")
		}
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head:
			return
		case atom.Br:
			b.WriteString("\n")
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkHTML(child, b)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		b.WriteString("\n")
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Tr, atom.Blockquote, atom.Pre,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
