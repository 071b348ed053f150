// Package dom holds the local mirror tree.
//
// A Document owns a rooted tree of Nodes indexed by the ids the remote
// session assigned to them. Mutations run inside Update under the write
// lock, so readers (HTML, Find, XPath, Snapshot) never observe a partially
// applied batch.
//
// Rendering and querying go through golang.org/x/net/html:
//
//   - HTML renders the tree
//   - SanitizedHTML strips active content with bluemonday
//   - Find runs a CSS selector with goquery
//   - XPath evaluates an expression with htmlquery
package dom
