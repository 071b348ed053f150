package dom

import "strings"

// NodeType mirrors the DOM nodeType constants.
type NodeType int

const (
	ElementNode  NodeType = 1
	TextNode     NodeType = 3
	CommentNode  NodeType = 8
	DocumentNode NodeType = 9
	DoctypeNode  NodeType = 10
)

// Node is one entry of the mirror tree. Parent is a back-reference used for
// detaching; the tree is owned top-down through Children.
type Node struct {
	ID         int
	Type       NodeType
	Tag        string
	Attributes map[string]string
	Text       string
	PublicID   string
	SystemID   string
	Children   []*Node
	Parent     *Node
}

// NewElement creates an element node.
func NewElement(id int, tag string) *Node {
	return &Node{ID: id, Type: ElementNode, Tag: tag, Attributes: make(map[string]string)}
}

// NewText creates a text node.
func NewText(id int, text string) *Node {
	return &Node{ID: id, Type: TextNode, Text: text}
}

// Attr returns an attribute value.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.Attributes[name]
	return v, ok
}

// SetAttr sets an attribute.
func (n *Node) SetAttr(name, value string) {
	if n.Attributes == nil {
		n.Attributes = make(map[string]string)
	}
	n.Attributes[name] = value
}

// RemoveAttr deletes an attribute.
func (n *Node) RemoveAttr(name string) {
	delete(n.Attributes, name)
}

// IsElement reports whether n is an element with the given tag, compared
// case-insensitively. An empty tag matches any element.
func (n *Node) IsElement(tag string) bool {
	return n.Type == ElementNode && (tag == "" || strings.EqualFold(n.Tag, tag))
}

// AppendChild adds child as the last child of n, detaching it first.
func (n *Node) AppendChild(child *Node) {
	child.Remove()
	child.Parent = n
	n.Children = append(n.Children, child)
}

// InsertAfter places child right after prev. A nil prev makes child the
// first child. If prev is not a child of n, child is appended.
func (n *Node) InsertAfter(child, prev *Node) {
	child.Remove()
	child.Parent = n

	idx := 0
	if prev != nil {
		idx = n.indexOf(prev) + 1
		if idx == 0 {
			idx = len(n.Children)
		}
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[idx+1:], n.Children[idx:])
	n.Children[idx] = child
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.Parent == nil {
		return
	}
	p := n.Parent
	if i := p.indexOf(n); i >= 0 {
		p.Children = append(p.Children[:i], p.Children[i+1:]...)
	}
	n.Parent = nil
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// TextContent concatenates the text of n and its descendants.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Text
	}
	var b strings.Builder
	n.walk(func(c *Node) {
		if c.Type == TextNode {
			b.WriteString(c.Text)
		}
	})
	return b.String()
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}
