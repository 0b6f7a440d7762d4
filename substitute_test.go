package lexpack

import "testing"

func buildDict(t *testing.T, entries ...DictionaryEntry) *Dictionary {
	t.Helper()
	d := NewDictionary()
	for _, e := range entries {
		if err := d.Add(e); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestSubstituteRespectsWordBoundaries(t *testing.T) {
	dict := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "net"},
	)

	got, layers := substitute("net network neat nets net.", dict)
	want := "฿a network neat nets ฿a."
	if got != want {
		t.Fatalf("substitute = %q, want %q", got, want)
	}

	word := layers[2]
	if word.Layer != "word" || word.Replacements != 2 {
		t.Fatalf("word layer = %+v, want 2 replacements", word)
	}
}

func TestSubstitutePrefersLongestMatch(t *testing.T) {
	dict := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "net"},
		DictionaryEntry{Code: "฿b", Tier: TierWord, Text: "network"},
	)

	got, _ := substitute("net network nets", dict)
	if want := "฿a ฿b nets"; got != want {
		t.Fatalf("substitute = %q, want %q", got, want)
	}
}

func TestSubstituteTemplateLineAlignment(t *testing.T) {
	block := "## Overview\nShared by every document"
	dict := buildDict(t,
		DictionaryEntry{Code: "§a", Tier: TierTemplate, Text: block},
	)

	got, _ := substitute(block+"\ntrailer\n", dict)
	if want := "§a\ntrailer\n"; got != want {
		t.Fatalf("aligned block = %q, want %q", got, want)
	}

	// The same bytes mid-line must not match.
	got, _ = substitute("prefix "+block+"\n", dict)
	if want := "prefix " + block + "\n"; got != want {
		t.Fatalf("mid-line block = %q, want unchanged %q", got, want)
	}
}

func TestSubstituteNeverMatchesInsideCodes(t *testing.T) {
	// The phrase collapses first; the word entry "a" must not bite into the
	// resulting "€a" code body.
	dict := buildDict(t,
		DictionaryEntry{Code: "€a", Tier: TierPhrase, Text: "some recurring phrase"},
		DictionaryEntry{Code: "฿b", Tier: TierWord, Text: "a"},
	)

	got, _ := substitute("a some recurring phrase a", dict)
	if want := "฿b €a ฿b"; got != want {
		t.Fatalf("substitute = %q, want %q", got, want)
	}
}

func TestSubstituteSubTokenEntry(t *testing.T) {
	dict := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "ward", SubToken: true},
	)

	got, _ := substitute("forwards ward", dict)
	if want := "for฿as ฿a"; got != want {
		t.Fatalf("substitute = %q, want %q", got, want)
	}
}

func TestSubstituteEmptyDictionaryIsIdentity(t *testing.T) {
	content := "nothing here repeats at all\n"
	got, layers := substitute(content, NewDictionary())
	if got != content {
		t.Fatalf("substitute = %q, want unchanged input", got)
	}
	if len(layers) != 3 {
		t.Fatalf("layers = %d, want one per tier", len(layers))
	}
	for _, l := range layers {
		if l.Replacements != 0 || l.OutputSize != len(content) {
			t.Errorf("layer %s = %+v, want identity", l.Layer, l)
		}
	}
}

func TestSubstitutePreservesInvalidUTF8(t *testing.T) {
	dict := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "word"},
	)
	content := "word \xff\xfe word"
	got, _ := substitute(content, dict)
	if want := "฿a \xff\xfe ฿a"; got != want {
		t.Fatalf("substitute = %q, want %q", got, want)
	}
}
