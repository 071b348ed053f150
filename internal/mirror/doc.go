// Package mirror applies the remote session's mutation stream onto a local
// dom.Document.
//
// Operations are queued in arrival order and drained by one worker
// goroutine; each runs to completion before the next starts. "initialize"
// provisions a fresh surface document and waits for the surface to report
// ready before the tree is rebuilt, so every later operation waits behind
// it. "applyChanged" carries one batch of tree-mirror changes and is applied
// under the document write lock.
//
// Example Usage:
//
//	m := mirror.New(surface, state, mirror.Options{
//		OnContentChanged: func() { ... },
//		OnDocumentReady:  func(doc *dom.Document, target surface.Document) { ... },
//	}, logger)
//	m.Start()
//	defer m.Close()
//	m.Apply("initialize", args)
package mirror
