package textclean

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeCleansNames(t *testing.T) {
	p := Default()
	tests := []struct {
		name   string
		input  string
		want   string
		tokens []string
	}{
		{"numbering url and bitrate", "03 - Track Name - coolsite.com [192kbps].mp3", "Track Name.mp3", []string{"coolsite.com"}},
		{"repeated extension", "Song.mp3.MP3", "Song.mp3", nil},
		{"dotted numbering", "01. Song.mp3", "Song.mp3", nil},
		{"bracketed prefix", "[www.site.com] 05 - Song.flac", "Song.flac", nil},
		{"trailing domain", "Song - www.site.net.mp3", "Song.mp3", []string{"www.site.net"}},
		{"domain in the middle", "Song - mp3skull.com - Live.mp3", "Song - Live.mp3", []string{"mp3skull.com"}},
		{"full width", "Ｓｏｎｇ.mp3", "Song.mp3", nil},
		{"illegal characters", `Who? What: Why.mp3`, "Who What Why.mp3", nil},
		{"digits only", "1234.mp3", "Unknown Track.mp3", nil},
		{"spaced bitrate", "Song 320 Kbps.ogg", "Song.ogg", nil},
		{"empty brackets", "Song [] Live.mp3", "Song Live.mp3", nil},
		{"stacked trailing brackets", "Song [a] [b].m4a", "Song.m4a", nil},
		{"already clean", "Song (1).mp3", "Song (1).mp3", nil},
		{"extension untouched", "Song.MP3", "Song.MP3", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, tokens := p.Normalize(tc.input)
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
			want := tc.tokens
			if want == nil {
				want = []string{}
			}
			if diff := cmp.Diff(want, tokens.Sorted()); diff != "" {
				t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

var idempotenceSeeds = []string{
	"03 - Track Name - coolsite.com [192kbps].mp3",
	"x.mp3 [abc].mp3",
	"a : b ? c.mp3",
	"  -- 07 __ [Promo] Song [] 128kbps [HD].flac",
	"[Drake].ft 01 Song [Remix].mp3",
	"Song ft.[Future] - site.io.mp3",
	"Ｓｏｎｇ　Ｎａｍｅ.mp3",
	"....mp3",
	"",
	"Song.mp3.mp3.mp3",
	"Mr. Brightside.mp3",
	"Vol. 2",
}

func checkIdempotent(t *testing.T, p *Pipeline, input string) {
	t.Helper()
	first, _ := p.Normalize(input)
	second, tokens := p.Normalize(first)
	if second != first {
		t.Errorf("Normalize not idempotent for %q: %q then %q", input, first, second)
	}
	if tokens.Len() != 0 {
		t.Errorf("second Normalize of %q extracted tokens %v", input, tokens.Sorted())
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	p := Default()
	for _, input := range idempotenceSeeds {
		checkIdempotent(t, p, input)
	}
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range idempotenceSeeds {
		f.Add(seed)
	}
	p := Default()
	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("file names are UTF-8")
		}
		checkIdempotent(t, p, input)
	})
}

func TestNormalizePreservesFeatureCredits(t *testing.T) {
	p := Default()
	tests := []struct {
		input string
		token string
	}{
		{"Song [Drake].ft remix [HQ].mp3", "[Drake].ft"},
		{"01 - Song ft.[Future] [320kbps].mp3", "ft.[Future]"},
		{"[A:B].FT Song.mp3", "[A:B].FT"},
	}

	for _, tc := range tests {
		got, _ := p.Normalize(tc.input)
		if !strings.Contains(got, tc.token) {
			t.Errorf("Normalize(%q) = %q, lost %q", tc.input, got, tc.token)
		}
		if strings.ContainsRune(got, placeholderOpen) || strings.ContainsRune(got, placeholderClose) {
			t.Errorf("Normalize(%q) leaked a placeholder: %q", tc.input, got)
		}
	}
}

func TestCleanTextKinds(t *testing.T) {
	p := Default()
	tests := []struct {
		name  string
		input string
		kind  Kind
		want  string
	}{
		{"album keeps leading digits", "1999 Tour", KindAlbum, "1999 Tour"},
		{"title drops numbering", "01 - Title", KindText, "Title"},
		{"title drops domain", "Song - coolsite.com", KindText, "Song"},
		{"album drops trailing tag", "Greatest Hits [www.x.com]", KindAlbum, "Greatest Hits"},
		{"illegal characters are kept in text", "AC/DC", KindText, "AC/DC"},
		{"empty stays empty", "", KindText, ""},
		{"feature credit survives", "Song [Guest].ft", KindText, "Song [Guest].ft"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := p.CleanText(tc.input, tc.kind)
			if got != tc.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
			}
			again, tokens := p.CleanText(got, tc.kind)
			if again != got || tokens.Len() != 0 {
				t.Fatalf("CleanText not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestCleanTextRecordsTokens(t *testing.T) {
	_, tokens := Default().CleanText("Song - coolsite.com", KindText)
	if !tokens.Has("coolsite.com") {
		t.Fatalf("expected coolsite.com in tokens, got %v", tokens.Sorted())
	}
}

func TestCustomOptions(t *testing.T) {
	p := New(Options{FallbackName: "Untitled", WebSuffixes: []string{"fm"}})
	got, tokens := p.Normalize("Song - radio.fm.mp3")
	if got != "Song.mp3" || !tokens.Has("radio.fm") {
		t.Fatalf("unexpected result %q tokens=%v", got, tokens.Sorted())
	}
	if got, _ := p.Normalize("Song - site.com.mp3"); got != "Song - site.com.mp3" {
		t.Fatalf("suffix outside the configured list was removed: %q", got)
	}
	if got, _ := p.Normalize("007.mp3"); got != "Untitled.mp3" {
		t.Fatalf("expected fallback label, got %q", got)
	}
}

func TestRulesAreOrdered(t *testing.T) {
	rules := Default().Rules()
	if len(rules) == 0 {
		t.Fatal("expected rules")
	}
	for i := 1; i < len(rules); i++ {
		if rules[i].Order <= rules[i-1].Order {
			t.Fatalf("rule %s (order %d) follows %s (order %d)", rules[i].Name, rules[i].Order, rules[i-1].Name, rules[i-1].Order)
		}
	}
	if rules[0].Name != "protect_feature_credits" || rules[len(rules)-1].Name != "restore_feature_credits" {
		t.Fatalf("feature credits must be protected first and restored last: %s .. %s", rules[0].Name, rules[len(rules)-1].Name)
	}
}
