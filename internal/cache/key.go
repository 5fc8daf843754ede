// File: internal/cache/key.go
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"

	"github.com/sankalpgunturi/stagehand/api/schemas"
)

// HashKey derives the on-disk lookup key for an identifying triple. The key
// fields are serialized in sorted field-name order with explicit length
// prefixes, so the digest never depends on struct layout or on ambiguous
// concatenation, and is fed through SHA-256.
func HashKey(key schemas.CacheKey) string {
	fields := map[string][]string{
		"action":            {key.Action},
		"previousSelectors": key.PreviousSelectors,
		"url":               {key.URL},
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		writeToken(h, name)
		values := fields[name]
		io.WriteString(h, strconv.Itoa(len(values)))
		io.WriteString(h, ":")
		for _, v := range values {
			writeToken(h, v)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeToken writes a single length-prefixed token to the digest.
func writeToken(w io.Writer, s string) {
	io.WriteString(w, strconv.Itoa(len(s)))
	io.WriteString(w, ":")
	io.WriteString(w, s)
}
