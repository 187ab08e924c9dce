package textclean

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	repeatedExtPattern     = regexp.MustCompile(`\.([A-Za-z0-9]+)\.([A-Za-z0-9]+)$`)
	extPattern             = regexp.MustCompile(`^\.[A-Za-z0-9]{1,5}$`)
	featurePattern         = regexp.MustCompile(`(?i)\[[^\]]+\]\.ft|ft\.\[[^\]]+\]`)
	leadingDebrisPattern   = regexp.MustCompile(`^(?:[\d\s\p{Z}._-]+|\[[^\]]*\])+`)
	separatorRunPattern    = regexp.MustCompile(`[-_ ]+`)
	bitratePattern         = regexp.MustCompile(`(?i)\s*\d+\s*kbps\s*`)
	trailingBracketPattern = regexp.MustCompile(`[\s._-]*\[[^\]]*\]\s*$`)
	emptyBracketPattern    = regexp.MustCompile(`\[\s*\]`)
	whitespacePattern      = regexp.MustCompile(`[\s\p{Z}]+`)
)

const illegalNameChars = `<>:"/\|?*`

// DefaultWebSuffixes lists the top-level suffixes recognised as bare web
// references.
var DefaultWebSuffixes = []string{"com", "co", "in", "net", "ws", "io", "org", "info", "me"}

type target uint8

const (
	targetName target = 1 << iota
	targetText
	targetAlbum
)

const (
	allTargets  = targetName | targetText | targetAlbum
	textTargets = targetText | targetAlbum
)

// Rule is one step of the ordered rule table. Order matches the position of
// the step in the full file-name flow; steps 1, 2 and 14 (extension collapse,
// extension split and the fallback label) wrap the table in Normalize.
type Rule struct {
	Order   int
	Name    string
	targets target
	apply   func(p *Pipeline, w *work)
}

// work carries the text through one application of the rule table.
type work struct {
	text      string
	originals []string
	tokens    TokenSet
}

func ruleTable() []Rule {
	return []Rule{
		{Order: 3, Name: "protect_feature_credits", targets: allTargets, apply: func(_ *Pipeline, w *work) {
			w.text, w.originals = protect(w.text)
		}},
		{Order: 4, Name: "strip_leading_debris", targets: targetName | targetText, apply: func(_ *Pipeline, w *work) {
			w.text = stripLeadingDebris(w.text)
		}},
		{Order: 5, Name: "strip_web_references", targets: allTargets, apply: func(p *Pipeline, w *work) {
			w.text = p.stripWebReferences(w.text, w.tokens)
		}},
		{Order: 6, Name: "strip_bitrate", targets: allTargets, apply: func(_ *Pipeline, w *work) {
			w.text = bitratePattern.ReplaceAllString(w.text, " ")
		}},
		{Order: 7, Name: "strip_trailing_brackets", targets: allTargets, apply: func(_ *Pipeline, w *work) {
			w.text = stripTrailingBrackets(w.text)
		}},
		{Order: 8, Name: "strip_empty_brackets", targets: allTargets, apply: func(_ *Pipeline, w *work) {
			w.text = emptyBracketPattern.ReplaceAllString(w.text, " ")
		}},
		{Order: 9, Name: "collapse_whitespace", targets: allTargets, apply: func(_ *Pipeline, w *work) {
			w.text = collapseWhitespace(w.text)
		}},
		{Order: 10, Name: "nfkc", targets: allTargets, apply: func(_ *Pipeline, w *work) {
			w.text = norm.NFKC.String(w.text)
		}},
		{Order: 11, Name: "strip_illegal_chars", targets: targetName, apply: func(_ *Pipeline, w *work) {
			w.text = stripIllegal(w.text)
		}},
		{Order: 12, Name: "strip_leading_debris_again", targets: targetName, apply: func(_ *Pipeline, w *work) {
			w.text = stripLeadingDebris(w.text)
		}},
		{Order: 13, Name: "restore_feature_credits", targets: allTargets, apply: func(_ *Pipeline, w *work) {
			w.text = restore(w.text, w.originals)
			w.originals = nil
		}},
	}
}

// collapseRepeatedExt turns "a.mp3.MP3" into "a.mp3", keeping the first
// occurrence, until no doubled extension remains.
func collapseRepeatedExt(name string) string {
	for {
		m := repeatedExtPattern.FindStringSubmatchIndex(name)
		if m == nil {
			return name
		}
		first := name[m[2]:m[3]]
		second := name[m[4]:m[5]]
		if !strings.EqualFold(first, second) {
			return name
		}
		name = name[:m[4]-1]
	}
}

func splitExt(name string) (string, string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, ""
	}
	ext := name[idx:]
	if !extPattern.MatchString(ext) {
		return name, ""
	}
	return name[:idx], ext
}

func stripLeadingDebris(s string) string {
	return leadingDebrisPattern.ReplaceAllString(s, "")
}

func stripTrailingBrackets(s string) string {
	for {
		next := trailingBracketPattern.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func stripIllegal(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalNameChars, r) {
			return -1
		}
		return r
	}, s)
}

// stripWebReferences drops every separator-delimited token that is a bare
// web domain. Separators are only re-emitted ahead of a kept token, so a
// removal never leaves a dangling separator run behind it.
func (p *Pipeline) stripWebReferences(s string, tokens TokenSet) string {
	bounds := separatorRunPattern.FindAllStringIndex(s, -1)
	var (
		b          strings.Builder
		pendingSep string
		removed    bool
		pos        int
	)
	emit := func(token string) {
		if token == "" {
			return
		}
		if p.webToken.MatchString(token) {
			tokens.Add(strings.Trim(token, "-_ "))
			removed = true
			pendingSep = ""
			return
		}
		if b.Len() > 0 || !removed {
			b.WriteString(pendingSep)
		}
		pendingSep = ""
		b.WriteString(token)
	}
	for _, bound := range bounds {
		emit(s[pos:bound[0]])
		pendingSep += s[bound[0]:bound[1]]
		pos = bound[1]
	}
	emit(s[pos:])
	if !removed {
		return s
	}
	return b.String()
}

func webTokenPattern(suffixes []string) *regexp.Regexp {
	quoted := make([]string, 0, len(suffixes))
	for _, suffix := range suffixes {
		suffix = strings.Trim(strings.ToLower(strings.TrimSpace(suffix)), ".")
		if suffix == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(suffix))
	}
	if len(quoted) == 0 {
		quoted = append(quoted, DefaultWebSuffixes...)
	}
	return regexp.MustCompile(`(?i)^(?:www\.)?(?:[a-z0-9]+\.)+(?:` + strings.Join(quoted, "|") + `)$`)
}
