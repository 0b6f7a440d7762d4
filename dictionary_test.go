package lexpack

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestDictionaryAddRejectsInvalidEntries(t *testing.T) {
	base := DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "compliance"}

	tests := []struct {
		name  string
		entry DictionaryEntry
	}{
		{"unknown tier", DictionaryEntry{Code: "?a", Tier: Tier(9), Text: "x"}},
		{"wrong marker", DictionaryEntry{Code: "€b", Tier: TierWord, Text: "x"}},
		{"bare marker", DictionaryEntry{Code: "฿", Tier: TierWord, Text: "x"}},
		{"empty text", DictionaryEntry{Code: "฿b", Tier: TierWord, Text: ""}},
		{"marker in text", DictionaryEntry{Code: "฿b", Tier: TierWord, Text: "pay in ฿ only"}},
		{"duplicate code", base},
		{"prefix conflict", DictionaryEntry{Code: "฿ab", Tier: TierWord, Text: "x"}},
	}

	d := NewDictionary()
	if err := d.Add(base); err != nil {
		t.Fatal(err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Add(tt.entry)
			if !errors.Is(err, ErrInvalidEntry) {
				t.Fatalf("Add = %v, want ErrInvalidEntry", err)
			}
		})
	}
	if d.Len() != 1 {
		t.Fatalf("Len = %d after rejected adds, want 1", d.Len())
	}
}

func TestDictionaryFreeze(t *testing.T) {
	d := NewDictionary()
	if err := d.Add(DictionaryEntry{Code: "€a", Tier: TierPhrase, Text: "alpha beta"}); err != nil {
		t.Fatal(err)
	}
	d.Freeze()
	if !d.Frozen() {
		t.Fatal("Frozen = false after Freeze")
	}
	err := d.Add(DictionaryEntry{Code: "€b", Tier: TierPhrase, Text: "gamma delta"})
	if !errors.Is(err, ErrFrozenDictionary) {
		t.Fatalf("Add after Freeze = %v, want ErrFrozenDictionary", err)
	}
}

func TestDictionarySerializationRoundTrip(t *testing.T) {
	now := time.Unix(0, time.Now().UnixNano())
	d := NewDictionary()
	entries := []DictionaryEntry{
		{Code: "§a", Tier: TierTemplate, Text: "## Header\nBody line", Occurrences: 4, CreatedAt: now},
		{Code: "€a", Tier: TierPhrase, Text: "zero hallucination policy", Occurrences: 12, CreatedAt: now},
		{Code: "฿a", Tier: TierWord, Text: "Principle", Occurrences: 7, CreatedAt: now},
		{Code: "฿na", Tier: TierWord, Text: "ward", Occurrences: 3, SubToken: true, CreatedAt: now},
	}
	for _, e := range entries {
		if err := d.Add(e); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	wrote, err := d.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if wrote != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, buffer has %d", wrote, buf.Len())
	}

	restored := NewDictionary()
	read, err := restored.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if read != wrote {
		t.Errorf("ReadFrom consumed %d bytes, want %d", read, wrote)
	}
	if !restored.Frozen() {
		t.Error("restored dictionary not frozen")
	}
	if restored.Len() != len(entries) {
		t.Fatalf("restored Len = %d, want %d", restored.Len(), len(entries))
	}

	for i, want := range entries {
		got := restored.Entries()[i]
		if got.Code != want.Code || got.Tier != want.Tier || got.Text != want.Text {
			t.Errorf("entry %d = %+v, want %+v", i, got, want)
		}
		if got.Occurrences != want.Occurrences || got.SubToken != want.SubToken {
			t.Errorf("entry %d metadata = %+v, want %+v", i, got, want)
		}
		if got.CreatedAt.UnixNano() != want.CreatedAt.UnixNano() {
			t.Errorf("entry %d timestamp = %v, want %v", i, got.CreatedAt, want.CreatedAt)
		}
	}

	if got, ok := restored.Lookup("€a"); !ok || got.Text != "zero hallucination policy" {
		t.Errorf("Lookup(€a) = (%+v, %v)", got, ok)
	}
}

func TestDictionaryReadFromRejectsWrongVersion(t *testing.T) {
	d := NewDictionary()
	if err := d.Add(DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "word"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[0] = 99 // corrupt the little-endian version field

	restored := NewDictionary()
	_, err := restored.ReadFrom(bytes.NewReader(raw))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("ReadFrom = %v, want ErrUnsupportedVersion", err)
	}
}

func TestDictionaryFingerprint(t *testing.T) {
	build := func(occ int) *Dictionary {
		d := NewDictionary()
		if err := d.Add(DictionaryEntry{Code: "€a", Tier: TierPhrase, Text: "alpha beta", Occurrences: occ}); err != nil {
			t.Fatal(err)
		}
		return d
	}

	a, b := build(5), build(50)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint varies with occurrence counts")
	}

	c := build(5)
	if err := c.Add(DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "gamma"}); err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("fingerprint identical for different entry sets")
	}
}

func TestContainsMarker(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"plain ascii text", false},
		{"unicode naïve café", false},
		{"price €10", true},
		{"section §4", true},
		{"baht ฿99", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := containsMarker(tt.in); got != tt.want {
			t.Errorf("containsMarker(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrefixConflict(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"€a", "€a", true},
		{"€a", "€ab", true},
		{"€ab", "€a", true},
		{"€a", "€b", false},
		{"€na", "€nb", false},
		{"§a", "€a", false},
	}
	for _, tt := range tests {
		if got := prefixConflict(tt.a, tt.b); got != tt.want {
			t.Errorf("prefixConflict(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
