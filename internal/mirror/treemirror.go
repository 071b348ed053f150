package mirror

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/dom"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/protocol"
)

// Mirror operations
const (
	OpInitialize   = "initialize"
	OpApplyChanged = "applyChanged"
)

// NodeData is the serialized form of a remote node.
type NodeData struct {
	ID              int                `json:"id"`
	NodeType        dom.NodeType       `json:"nodeType,omitempty"`
	Name            string             `json:"name,omitempty"`
	PublicID        string             `json:"publicId,omitempty"`
	SystemID        string             `json:"systemId,omitempty"`
	TextContent     string             `json:"textContent,omitempty"`
	TagName         string             `json:"tagName,omitempty"`
	Attributes      map[string]*string `json:"attributes,omitempty"`
	ChildNodes      []*NodeData        `json:"childNodes,omitempty"`
	ParentNode      *NodeData          `json:"parentNode,omitempty"`
	PreviousSibling *NodeData          `json:"previousSibling,omitempty"`
}

// ChangeSet is one applyChanged batch.
type ChangeSet struct {
	Removed      []*NodeData
	AddedOrMoved []*NodeData
	Attributes   []*NodeData
	Text         []*NodeData
}

func decodeArg(args []json.RawMessage, i int, v any) error {
	if i >= len(args) {
		return nil
	}
	if err := protocol.Unmarshal(args[i], v); err != nil {
		return fmt.Errorf("argument %d: %w", i, err)
	}
	return nil
}

func decodeInitialize(args []json.RawMessage) (int, []*NodeData, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("initialize: missing root id")
	}
	var rootID int
	var children []*NodeData
	if err := decodeArg(args, 0, &rootID); err != nil {
		return 0, nil, fmt.Errorf("initialize: %w", err)
	}
	if err := decodeArg(args, 1, &children); err != nil {
		return 0, nil, fmt.Errorf("initialize: %w", err)
	}
	return rootID, children, nil
}

func decodeChangeSet(args []json.RawMessage) (ChangeSet, error) {
	var cs ChangeSet
	for i, dst := range []*[]*NodeData{&cs.Removed, &cs.AddedOrMoved, &cs.Attributes, &cs.Text} {
		if err := decodeArg(args, i, dst); err != nil {
			return ChangeSet{}, fmt.Errorf("applyChanged: %w", err)
		}
	}
	return cs, nil
}

// builder turns NodeData into tree nodes, reusing nodes already indexed.
type builder struct {
	m    *Mirror
	tree *dom.Tree
	css  bool
}

func (b *builder) node(data *NodeData, parent *dom.Node) *dom.Node {
	if data == nil {
		return nil
	}
	if n, ok := b.tree.Lookup(data.ID); ok {
		return n
	}

	var n *dom.Node
	switch data.NodeType {
	case dom.TextNode:
		n = dom.NewText(data.ID, data.TextContent)
	case dom.CommentNode:
		n = &dom.Node{ID: data.ID, Type: dom.CommentNode, Text: data.TextContent}
	case dom.DoctypeNode:
		n = &dom.Node{ID: data.ID, Type: dom.DoctypeNode, Tag: data.Name, PublicID: data.PublicID, SystemID: data.SystemID}
	case dom.ElementNode:
		n = dom.NewElement(data.ID, data.TagName)
		for name, value := range data.Attributes {
			if value != nil {
				n.SetAttr(name, *value)
			}
		}
		// filter after all attributes are set; rules may depend on others, e.g. rel
		for name, value := range n.Attributes {
			b.setAttr(n, name, value)
		}
	default:
		// Reference-only payloads (parentNode, previousSibling) carry no
		// type; a missing node there is a protocol error.
		b.m.logger.Warn("unknown node reference", zap.Int("id", data.ID), zap.Int("nodeType", int(data.NodeType)))
		return nil
	}
	b.tree.Register(n)

	for _, child := range data.ChildNodes {
		b.node(child, n)
	}
	if parent != nil {
		parent.AppendChild(n)
	}
	return n
}

func (b *builder) setAttr(n *dom.Node, name, value string) {
	if v, keep := b.m.delegate.FilterAttribute(n, name, value, b.css); keep {
		n.SetAttr(name, v)
		return
	}
	n.RemoveAttr(name)
}

func (b *builder) initialize(children []*NodeData) {
	root := b.tree.Root()
	for _, child := range children {
		b.node(child, root)
	}
}

func (b *builder) applyChanged(cs ChangeSet) {
	for _, data := range cs.Removed {
		if n := b.node(data, nil); n != nil {
			n.Remove()
		}
	}

	for _, data := range cs.AddedOrMoved {
		if n := b.node(data, nil); n != nil {
			n.Remove()
		}
	}

	for _, data := range cs.AddedOrMoved {
		n := b.node(data, nil)
		parent := b.node(data.ParentNode, nil)
		if n == nil || parent == nil {
			b.m.logger.Warn("cannot place node", zap.Int("id", data.ID))
			continue
		}
		parent.InsertAfter(n, b.node(data.PreviousSibling, nil))
	}

	for _, data := range cs.Attributes {
		n := b.node(data, nil)
		if n == nil {
			continue
		}
		for name, value := range data.Attributes {
			if value == nil {
				n.RemoveAttr(name)
				continue
			}
			b.setAttr(n, name, *value)
		}
	}

	for _, data := range cs.Text {
		n := b.node(data, nil)
		if n == nil {
			continue
		}
		if n.Type == dom.ElementNode {
			for _, c := range n.Children {
				c.Parent = nil
				b.tree.Forget(c)
			}
			n.Children = nil
			if data.TextContent != "" {
				n.AppendChild(dom.NewText(0, data.TextContent))
			}
			continue
		}
		n.Text = data.TextContent
	}

	for _, data := range cs.Removed {
		if n, ok := b.tree.Lookup(data.ID); ok {
			b.tree.Forget(n)
		}
	}
}
