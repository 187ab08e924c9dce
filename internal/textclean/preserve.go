package textclean

import "strings"

// Placeholders are built from private-use runes so no rule can match or
// rewrite them, and NFKC leaves them alone.
const (
	placeholderOpen  = '\uE000'
	placeholderClose = '\uE001'
	placeholderBase  = 0xE100
)

func placeholder(idx int) string {
	return string([]rune{placeholderOpen, rune(placeholderBase + idx), placeholderClose})
}

// protect swaps each feature-credit match for a placeholder and returns the
// captured originals indexed by placeholder number.
func protect(s string) (string, []string) {
	var originals []string
	out := featurePattern.ReplaceAllStringFunc(s, func(match string) string {
		originals = append(originals, match)
		return placeholder(len(originals) - 1)
	})
	return out, originals
}

func restore(s string, originals []string) string {
	if len(originals) == 0 {
		return s
	}
	pairs := make([]string, 0, len(originals)*2)
	for idx, original := range originals {
		pairs = append(pairs, placeholder(idx), original)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
