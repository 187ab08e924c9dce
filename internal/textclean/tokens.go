package textclean

import (
	"encoding/json"
	"sort"
)

// TokenSet collects web references removed from names during a run.
type TokenSet map[string]struct{}

// Add records token, ignoring empty values.
func (s TokenSet) Add(token string) {
	if token == "" {
		return
	}
	s[token] = struct{}{}
}

// Merge copies every token of other into s.
func (s TokenSet) Merge(other TokenSet) {
	for token := range other {
		s[token] = struct{}{}
	}
}

// Has reports whether token was recorded.
func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Len returns the number of distinct tokens.
func (s TokenSet) Len() int { return len(s) }

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for token := range s {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s TokenSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *TokenSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	set := make(TokenSet, len(values))
	for _, v := range values {
		set.Add(v)
	}
	*s = set
	return nil
}
