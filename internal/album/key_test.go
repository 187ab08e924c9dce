package album

import (
	"strings"
	"testing"
)

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"":                       UnknownAlbum,
		"   ":                    UnknownAlbum,
		"unknown album":          UnknownAlbum,
		"Greatest   Hits ":       "Greatest Hits",
		`Best: Of / The "Year"?`: "Best Of The Year",
		"???":                    UnknownAlbum,
		"1999 Tour":              "1999 Tour",
		"..":                     UnknownAlbum,
		".":                      UnknownAlbum,
		"../..":                  UnknownAlbum,
		".Hidden":                "Hidden",
		"... Hits":               "Hits",
		".unknown album":         UnknownAlbum,
		"Vol. 2.":                "Vol. 2.",
	}
	for input, want := range tests {
		if got := CleanName(input); got != want {
			t.Errorf("CleanName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestExtractYear(t *testing.T) {
	tests := map[string]string{
		"2001":          "2001",
		"2001-05-04":    "2001",
		"Released 1987": "1987",
		"20011":         "",
		"1899":          "",
		"":              "",
		"12019 2020":    "2020",
		"x1999a":        "",
		"1999a 2002":    "2002",
		"(1999)":        "1999",
		"Live, 1999.":   "1999",
	}
	for input, want := range tests {
		if got := ExtractYear(input); got != want {
			t.Errorf("ExtractYear(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name, year, want string
	}{
		{"1999 Tour", "1999", "1999 Tour"},
		{"Greatest Hits", "2001", "Greatest Hits (2001)"},
		{"Greatest Hits", "", "Greatest Hits"},
		{"Live (2003)", "2003", "Live (2003)"},
		{"Live [2003]", "2003", "Live [2003]"},
		{"Live2003", "2003", "Live2003"},
		{"Live 2003", "2004", "Live 2003 (2004)"},
		{UnknownAlbum, "2010", "Unknown Album (2010)"},
	}
	for _, tc := range tests {
		if got := BuildKey(tc.name, tc.year); got != tc.want {
			t.Errorf("BuildKey(%q, %q) = %q, want %q", tc.name, tc.year, got, tc.want)
		}
	}
}

func TestBuildKeyNeverDuplicatesYear(t *testing.T) {
	names := []string{"Album", "Album 1999", "1999", "(1999)", "x1999x", "Album [1999] Deluxe", ""}
	years := []string{"1999", "2000"}
	for _, name := range names {
		for _, year := range years {
			key := BuildKey(name, year)
			if n := strings.Count(key, year); n > 1 {
				t.Errorf("BuildKey(%q, %q) = %q contains the year %d times", name, year, key, n)
			}
		}
	}
}

func TestKey(t *testing.T) {
	if got := Key("  Greatest Hits ", "2001-01-01"); got != "Greatest Hits (2001)" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := Key("", ""); got != UnknownAlbum {
		t.Fatalf("unexpected key %q", got)
	}
}
