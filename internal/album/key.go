package album

import (
	"regexp"
	"strings"
)

// UnknownAlbum is the sentinel name for items without a usable album tag.
const UnknownAlbum = "Unknown Album"

const illegalNameChars = `<>:"/\|?*`

var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// CleanName prepares a raw album tag for use as a container name. The result
// is always a single visible path component: separators are removed and
// leading dots trimmed, so "..", "." and ".x" cannot escape or hide.
func CleanName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, UnknownAlbum) {
		return UnknownAlbum
	}
	stripped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalNameChars, r) {
			return -1
		}
		return r
	}, trimmed)
	cleaned := strings.Join(strings.Fields(stripped), " ")
	cleaned = strings.TrimSpace(strings.TrimLeft(cleaned, "."))
	if cleaned == "" || strings.EqualFold(cleaned, UnknownAlbum) {
		return UnknownAlbum
	}
	return cleaned
}

// ExtractYear returns the first word-bounded 19xx or 20xx in raw, or "".
// Digits or letters glued to either side disqualify a run.
func ExtractYear(raw string) string {
	return yearPattern.FindString(raw)
}

// BuildKey combines a cleaned album name and year into a container name.
// The year is appended only when name does not already carry it.
func BuildKey(name, year string) string {
	if year == "" {
		return name
	}
	if containsYear(name, year) {
		return name
	}
	return name + " (" + year + ")"
}

// containsYear reports whether appending year would repeat it. A plain
// substring test covers "(2001)", "[2001]", "Live 2001" and "Live2001".
func containsYear(name, year string) bool {
	return strings.Contains(name, year)
}

// Key derives the grouping key for an album tag and year tag.
func Key(rawAlbum, rawYear string) string {
	return BuildKey(CleanName(rawAlbum), ExtractYear(rawYear))
}
