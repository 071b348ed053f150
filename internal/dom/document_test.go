package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// build creates:
//
//	<html><body><p id="greeting" class="x">hello</p><a href="/next" onclick="go()">next</a></body></html>
func build(t *testing.T) *Document {
	t.Helper()
	d := NewDocument(1)
	require.NoError(t, d.Update(func(tr *Tree) error {
		htmlEl := NewElement(2, "HTML")
		body := NewElement(3, "BODY")
		p := NewElement(4, "P")
		p.SetAttr("id", "greeting")
		p.SetAttr("class", "x")
		p.AppendChild(NewText(5, "hello"))
		a := NewElement(6, "A")
		a.SetAttr("href", "/next")
		a.SetAttr("onclick", "go()")
		a.AppendChild(NewText(7, "next"))

		body.AppendChild(p)
		body.AppendChild(a)
		htmlEl.AppendChild(body)
		tr.Root().AppendChild(htmlEl)
		tr.Register(htmlEl)
		return nil
	}))
	return d
}

func TestInsertAfter(t *testing.T) {
	parent := NewElement(1, "ul")
	a, b, c := NewElement(2, "li"), NewElement(3, "li"), NewElement(4, "li")

	parent.InsertAfter(b, nil)
	parent.InsertAfter(a, nil)
	parent.InsertAfter(c, b)
	assert.Equal(t, []*Node{a, b, c}, parent.Children)

	// moving within the same parent
	parent.InsertAfter(a, c)
	assert.Equal(t, []*Node{b, c, a}, parent.Children)

	stranger := NewElement(9, "li")
	parent.InsertAfter(NewElement(5, "li"), stranger)
	assert.Len(t, parent.Children, 4)
	assert.Equal(t, 5, parent.Children[3].ID)
}

func TestRemoveAndReparent(t *testing.T) {
	one, two := NewElement(1, "div"), NewElement(2, "div")
	child := NewText(3, "t")

	one.AppendChild(child)
	two.AppendChild(child)
	assert.Empty(t, one.Children)
	assert.Same(t, two, child.Parent)

	child.Remove()
	child.Remove()
	assert.Empty(t, two.Children)
	assert.Nil(t, child.Parent)
}

func TestRegisterForget(t *testing.T) {
	d := build(t)
	assert.Equal(t, 7, d.Len())

	require.NoError(t, d.Update(func(tr *Tree) error {
		body, ok := tr.Lookup(3)
		require.True(t, ok)
		body.Remove()
		tr.Forget(body)
		return nil
	}))
	assert.Equal(t, 2, d.Len())

	require.NoError(t, d.View(func(tr *Tree) error {
		_, ok := tr.Lookup(5)
		assert.False(t, ok)
		_, ok = tr.Lookup(1)
		assert.True(t, ok)
		return nil
	}))
}

func TestHTML(t *testing.T) {
	out, err := build(t).HTML()
	require.NoError(t, err)
	assert.Equal(t,
		`<html><body><p class="x" id="greeting">hello</p><a href="/next" onclick="go()">next</a></body></html>`,
		out)
}

func TestSanitizedHTML(t *testing.T) {
	out, err := build(t).SanitizedHTML()
	require.NoError(t, err)
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "hello")
}

func TestFind(t *testing.T) {
	d := build(t)

	matches, err := d.Find("p#greeting")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 4, matches[0].ID)
	assert.Equal(t, "p", matches[0].Tag)
	assert.Equal(t, "hello", matches[0].Text)

	matches, err = d.Find("span")
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = d.Find("p[")
	assert.Error(t, err)
}

func TestXPath(t *testing.T) {
	d := build(t)

	matches, err := d.XPath("//a[@href='/next']")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 6, matches[0].ID)
	assert.True(t, strings.HasPrefix(matches[0].HTML, "<a "))

	_, err = d.XPath("//a[")
	assert.Error(t, err)
}

func TestSnapshotIsDetached(t *testing.T) {
	d := build(t)
	snap := d.Snapshot()

	require.NoError(t, d.Update(func(tr *Tree) error {
		p, _ := tr.Lookup(4)
		p.SetAttr("class", "changed")
		return nil
	}))

	p := snap.Children[0].Children[0].Children[0]
	assert.Equal(t, "x", p.Attributes["class"])
}

func TestTextContent(t *testing.T) {
	d := build(t)
	require.NoError(t, d.View(func(tr *Tree) error {
		body, _ := tr.Lookup(3)
		assert.Equal(t, "hellonext", body.TextContent())
		assert.True(t, body.IsElement("body"))
		assert.False(t, body.IsElement("p"))
		return nil
	}))
}

func TestForgetKeepsAttachedDescendants(t *testing.T) {
	d := build(t)

	require.NoError(t, d.Update(func(tr *Tree) error {
		body, _ := tr.Lookup(3)
		htmlEl, _ := tr.Lookup(2)
		p, _ := tr.Lookup(4)

		body.Remove()
		htmlEl.AppendChild(p)
		tr.Forget(body)

		_, ok := tr.Lookup(4)
		assert.True(t, ok, "moved node stays indexed")
		_, ok = tr.Lookup(6)
		assert.False(t, ok)
		return nil
	}))
}
