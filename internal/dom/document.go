package dom

import (
	"sort"
	"sync"
)

// Document is a mirror tree guarded by a read-write lock.
type Document struct {
	mu   sync.RWMutex
	tree *Tree
}

// NewDocument creates a document whose root carries rootID.
func NewDocument(rootID int) *Document {
	root := &Node{ID: rootID, Type: DocumentNode}
	return &Document{tree: &Tree{root: root, byID: map[int]*Node{rootID: root}}}
}

// Update runs fn with exclusive access to the tree.
func (d *Document) Update(fn func(t *Tree) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.tree)
}

// View runs fn with shared access to the tree. fn must not mutate it.
func (d *Document) View(fn func(t *Tree) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn(d.tree)
}

// RootID returns the id of the document node.
func (d *Document) RootID() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tree.root.ID
}

// Len returns the number of indexed nodes, root included.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tree.byID)
}

// Tree is the lock-free view handed to Update and View.
type Tree struct {
	root *Node
	byID map[int]*Node
}

// Root returns the document node.
func (t *Tree) Root() *Node {
	return t.root
}

// Lookup finds a node by id.
func (t *Tree) Lookup(id int) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Register indexes n and its descendants.
func (t *Tree) Register(n *Node) {
	n.walk(func(c *Node) { t.byID[c.ID] = c })
}

// Forget drops n and its descendants from the index. Nodes still attached
// under the root stay indexed.
func (t *Tree) Forget(n *Node) {
	n.walk(func(c *Node) {
		if t.byID[c.ID] == c && !t.attached(c) {
			delete(t.byID, c.ID)
		}
	})
}

func (t *Tree) attached(n *Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == t.root {
			return true
		}
	}
	return false
}

// Snapshot is a pointer-free copy of a node, suitable for comparison.
type Snapshot struct {
	ID         int               `json:"id"`
	Type       NodeType          `json:"type"`
	Tag        string            `json:"tag,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Text       string            `json:"text,omitempty"`
	Children   []Snapshot        `json:"children,omitempty"`
}

// Snapshot copies the whole tree.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return snapshot(d.tree.root)
}

func snapshot(n *Node) Snapshot {
	s := Snapshot{ID: n.ID, Type: n.Type, Tag: n.Tag, Text: n.Text}
	if len(n.Attributes) > 0 {
		s.Attributes = make(map[string]string, len(n.Attributes))
		for k, v := range n.Attributes {
			s.Attributes[k] = v
		}
	}
	for _, c := range n.Children {
		s.Children = append(s.Children, snapshot(c))
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
