package mirror

import (
	"strings"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/dom"
)

// Delegate decides which attributes reach the local tree.
type Delegate interface {
	// FilterAttribute returns the value to store and false to drop the
	// attribute instead.
	FilterAttribute(node *dom.Node, name, value string, cssEnabled bool) (string, bool)
}

// DefaultDelegate drops event handler attributes, and styling when styles
// are disabled.
type DefaultDelegate struct{}

// FilterAttribute implements Delegate.
func (DefaultDelegate) FilterAttribute(node *dom.Node, name, value string, cssEnabled bool) (string, bool) {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "on") {
		return "", false
	}
	if cssEnabled {
		return value, true
	}
	if lower == "style" {
		return "", false
	}
	if lower == "href" && node.IsElement("link") && isStylesheet(node) {
		return "", false
	}
	return value, true
}

func isStylesheet(node *dom.Node) bool {
	rel, _ := node.Attr("rel")
	for _, part := range strings.Fields(strings.ToLower(rel)) {
		if part == "stylesheet" {
			return true
		}
	}
	return false
}
