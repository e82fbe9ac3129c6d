package blocksource

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
)

// HTMLSource handles HTML files. Headings, paragraph-level text, tables,
// images, and figcaptions map to their block kinds; chrome elements
// (script, nav, footer) are skipped.
type HTMLSource struct{}

func (s *HTMLSource) Blocks(r io.Reader, filename string) ([]block.ContentBlock, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var e emitter

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				e.heading(level, textContent(n))
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "head":
				return
			case "p", "li", "blockquote", "pre":
				e.text(textContent(n))
				return
			case "table":
				emitHTMLTable(&e, n)
				return
			case "img":
				e.figure(attrValue(n, "alt"), nil)
				return
			case "figcaption", "caption":
				e.caption(textContent(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(doc, "body"); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return e.blocks, nil
}

// emitHTMLTable flattens tr/th/td into row/col-addressed cells. A nested
// <caption> is emitted after the cells so it attaches to this table.
func emitHTMLTable(e *emitter, tbl *html.Node) {
	id := e.nextTableID()
	var caption string
	row := 0

	var walkRows func(*html.Node)
	walkRows = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "caption":
				caption = textContent(n)
				return
			case "tr":
				col := 0
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
						e.cell(id, row, col, textContent(c))
						col++
					}
				}
				row++
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walkRows(c)
		}
	}
	walkRows(tbl)
	e.caption(caption)
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
