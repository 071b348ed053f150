package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var ugc = bluemonday.UGCPolicy()

// Match is a node selected by Find or XPath.
type Match struct {
	ID   int    `json:"id"`
	Tag  string `json:"tag,omitempty"`
	Text string `json:"text"`
	HTML string `json:"html"`
}

// converted is an x/net/html rendition of the tree plus the id of every
// converted node.
type converted struct {
	root *html.Node
	ids  map[*html.Node]int
}

func (d *Document) convert() converted {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c := converted{ids: make(map[*html.Node]int, len(d.tree.byID))}
	c.root = c.node(d.tree.root)
	return c
}

func (c converted) node(n *Node) *html.Node {
	out := &html.Node{}
	switch n.Type {
	case DocumentNode:
		out.Type = html.DocumentNode
	case ElementNode:
		out.Type = html.ElementNode
		out.Data = strings.ToLower(n.Tag)
		for _, k := range sortedKeys(n.Attributes) {
			out.Attr = append(out.Attr, html.Attribute{Key: k, Val: n.Attributes[k]})
		}
	case TextNode:
		out.Type = html.TextNode
		out.Data = n.Text
	case CommentNode:
		out.Type = html.CommentNode
		out.Data = n.Text
	case DoctypeNode:
		out.Type = html.DoctypeNode
		out.Data = strings.ToLower(n.Tag)
		if n.PublicID != "" {
			out.Attr = append(out.Attr, html.Attribute{Key: "public", Val: n.PublicID})
		}
		if n.SystemID != "" {
			out.Attr = append(out.Attr, html.Attribute{Key: "system", Val: n.SystemID})
		}
	default:
		out.Type = html.RawNode
	}
	c.ids[out] = n.ID

	for _, child := range n.Children {
		out.AppendChild(c.node(child))
	}
	return out
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return buf.String(), nil
}

// HTML renders the document as markup.
func (d *Document) HTML() (string, error) {
	return renderNode(d.convert().root)
}

// SanitizedHTML renders the document with scripts, handlers and other
// active content removed.
func (d *Document) SanitizedHTML() (string, error) {
	raw, err := d.HTML()
	if err != nil {
		return "", err
	}
	return ugc.Sanitize(raw), nil
}

// Find returns the nodes matching a CSS selector.
func (d *Document) Find(selector string) ([]Match, error) {
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	c := d.convert()
	var (
		matches []Match
		err     error
	)
	goquery.NewDocumentFromNode(c.root).Find(selector).Each(func(_ int, s *goquery.Selection) {
		if err != nil {
			return
		}
		var m Match
		m, err = c.match(s.Get(0))
		matches = append(matches, m)
	})
	return matches, err
}

// XPath returns the nodes matching an XPath expression.
func (d *Document) XPath(expr string) ([]Match, error) {
	c := d.convert()
	nodes, err := htmlquery.QueryAll(c.root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	matches := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		m, err := c.match(n)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (c converted) match(n *html.Node) (Match, error) {
	markup, err := renderNode(n)
	if err != nil {
		return Match{}, err
	}
	m := Match{ID: c.ids[n], HTML: markup, Text: htmlquery.InnerText(n)}
	if n.Type == html.ElementNode {
		m.Tag = n.Data
	}
	return m, nil
}
