// File: internal/codegen/selector.go
package codegen

import "strings"

// xpathPrefix marks a selector explicitly as xpath flavored, disambiguating
// it from the CSS selectors Playwright also accepts.
const xpathPrefix = "xpath="

// NativeSelector rewrites a raw recorded xpath into the selector form the
// generated code addresses elements with:
//
//   - a path rooted at /html/body addresses the body element directly,
//     keeping the remainder of the path;
//   - any other absolute path becomes an anywhere-under-root search by
//     doubling the leading slash;
//   - everything else passes through unchanged.
func NativeSelector(xpath string) string {
	rewritten := xpath
	switch {
	case strings.HasPrefix(xpath, "/html/body"):
		rewritten = "body" + strings.TrimPrefix(xpath, "/html/body")
	case strings.HasPrefix(xpath, "/") && !strings.HasPrefix(xpath, "//"):
		rewritten = "/" + xpath
	}
	return xpathPrefix + rewritten
}
