// File: internal/browser/dom/xpath.go
//
// Package dom derives canonical locators from captured page HTML. The
// recording session snapshots the DOM, resolves the caller's selector to a
// node, and records the node's absolute positional xpath so replay does not
// depend on however the caller happened to phrase the selector.
package dom

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// CanonicalXPath parses the captured page HTML, resolves the given xpath
// expression to its first matching element, and returns the element's
// absolute positional path from the document root.
func CanonicalXPath(pageHTML, xpath string) (string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse page HTML: %w", err)
	}
	node, err := htmlquery.Query(doc, xpath)
	if err != nil {
		return "", fmt.Errorf("invalid xpath expression %q: %w", xpath, err)
	}
	if node == nil {
		return "", fmt.Errorf("no element matches xpath %q", xpath)
	}
	return NodePath(node), nil
}

// NodePath builds the absolute positional xpath for a node, e.g.
// /html/body/div[2]/button. Indices are 1-based and only emitted when the
// node has same-tag siblings, keeping recorded paths short for the common
// single-child case.
func NodePath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var segments []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}
		segments = append(segments, segmentFor(n, tag))
	}
	if len(segments) == 0 {
		return "/"
	}

	var b strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segments[i])
	}
	return b.String()
}

// segmentFor renders one path segment, adding a positional predicate only
// when the element is ambiguous among its same-tag siblings.
func segmentFor(n *html.Node, tag string) string {
	position := 1
	ambiguous := false
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
			position++
			ambiguous = true
		}
	}
	if !ambiguous {
		for next := n.NextSibling; next != nil; next = next.NextSibling {
			if next.Type == html.ElementNode && strings.ToLower(next.Data) == tag {
				ambiguous = true
				break
			}
		}
	}
	if ambiguous {
		return fmt.Sprintf("%s[%d]", tag, position)
	}
	return tag
}
