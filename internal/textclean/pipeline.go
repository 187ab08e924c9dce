package textclean

import (
	"regexp"
	"strings"
)

// DefaultFallbackName replaces a file base that cleans down to nothing.
const DefaultFallbackName = "Unknown Track"

// maxSettleRounds bounds how often the rule table is re-applied while its
// output keeps changing.
const maxSettleRounds = 4

// Kind selects the attribute cleaning variant used by CleanText.
type Kind int

const (
	// KindText cleans titles and artists.
	KindText Kind = iota
	// KindAlbum cleans album names; leading digits are kept.
	KindAlbum
)

// Options configures a Pipeline.
type Options struct {
	FallbackName string
	WebSuffixes  []string
}

// Pipeline applies the ordered rule table. It holds no per-call state and is
// safe to share.
type Pipeline struct {
	fallback string
	webToken *regexp.Regexp
	rules    []Rule
}

// New builds a Pipeline from opts, filling blanks with defaults.
func New(opts Options) *Pipeline {
	fallback := strings.TrimSpace(opts.FallbackName)
	if fallback == "" {
		fallback = DefaultFallbackName
	}
	suffixes := opts.WebSuffixes
	if len(suffixes) == 0 {
		suffixes = DefaultWebSuffixes
	}
	return &Pipeline{
		fallback: fallback,
		webToken: webTokenPattern(suffixes),
		rules:    ruleTable(),
	}
}

// Default returns a Pipeline using the built-in fallback label and suffixes.
func Default() *Pipeline {
	return New(Options{})
}

// Rules returns the ordered rule table.
func (p *Pipeline) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// FallbackName returns the label used for names that clean to nothing.
func (p *Pipeline) FallbackName() string { return p.fallback }

// Normalize cleans a file leaf name and returns it together with the web
// references it removed.
func (p *Pipeline) Normalize(raw string) (string, TokenSet) {
	tokens := make(TokenSet)
	current := raw
	for range maxSettleRounds {
		next := p.normalizeOnce(current, tokens)
		if next == current {
			break
		}
		current = next
	}
	return current, tokens
}

func (p *Pipeline) normalizeOnce(raw string, tokens TokenSet) string {
	base, ext := splitExt(collapseRepeatedExt(raw))
	base = p.apply(base, targetName, tokens)
	if base == "" {
		base = p.fallback
	}
	return base + ext
}

// CleanText cleans a tag value. Empty input stays empty.
func (p *Pipeline) CleanText(text string, kind Kind) (string, TokenSet) {
	tokens := make(TokenSet)
	if text == "" {
		return text, tokens
	}
	tgt := targetText
	if kind == KindAlbum {
		tgt = targetAlbum
	}
	current := text
	for range maxSettleRounds {
		next := p.apply(current, tgt, tokens)
		if next == current {
			break
		}
		current = next
	}
	return current, tokens
}

func (p *Pipeline) apply(text string, tgt target, tokens TokenSet) string {
	w := &work{text: text, tokens: tokens}
	for _, rule := range p.rules {
		if rule.targets&tgt == 0 {
			continue
		}
		rule.apply(p, w)
	}
	return w.text
}
