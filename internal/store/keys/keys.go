// Package keys builds the storage and tracking keys used for subdivisions.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "subdiv"

// IndexKey names the set of all stored subdivision names.
const IndexKey = prefix + ":index"

// DocKey is the key holding one subdivision document. The hash suffix keeps
// names that sanitize to the same text apart.
func DocKey(name string) string {
	name = strings.TrimSpace(name)
	return fmt.Sprintf("%s:doc:%s:h=%016x", prefix, sanitize(name), xxhash.Sum64String(name))
}

// SlabKey identifies one slab of one subdivision for hotness tracking.
func SlabKey(layer string, slab int) string {
	return layer + "#" + strconv.Itoa(slab)
}

// SlabKeys returns SlabKey for slabs [0, n).
func SlabKeys(layer string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = SlabKey(layer, i)
	}
	return out
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
