package lexpack

import (
	"errors"
	"testing"
)

func TestExpandUnknownCode(t *testing.T) {
	dict := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "alpha"},
	)

	_, err := Expand("฿a then ฿z", dict, nil)
	if !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("Expand = %v, want ErrUnknownCode", err)
	}

	// A bare trailing marker is just as undecodable.
	_, err = Expand("trailing €", dict, nil)
	if !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("Expand = %v, want ErrUnknownCode", err)
	}
}

func TestExpandRejectsBadAdjacencyRecords(t *testing.T) {
	dict := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "alpha"},
	)

	tests := []struct {
		name    string
		records []AdjacencyRecord
	}{
		{"negative position", []AdjacencyRecord{{Position: -1, Separator: ' '}}},
		{"past the end", []AdjacencyRecord{{Position: 99, Separator: ' '}}},
		{"duplicate position", []AdjacencyRecord{
			{Position: 4, Separator: ' '},
			{Position: 4, Separator: ' '},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand("฿a฿a", dict, tt.records)
			if !errors.Is(err, ErrAmbiguousAdjacency) {
				t.Fatalf("Expand = %v, want ErrAmbiguousAdjacency", err)
			}
		})
	}
}

func TestExpandDefaultsZeroSeparatorToSpace(t *testing.T) {
	dict := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "alpha"},
	)
	got, err := Expand("฿a฿a", dict, []AdjacencyRecord{{Position: 4}})
	if err != nil {
		t.Fatal(err)
	}
	if got != "alpha alpha" {
		t.Fatalf("Expand = %q, want %q", got, "alpha alpha")
	}
}

func TestExpandPlainContentPassesThrough(t *testing.T) {
	dict := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "alpha"},
	)
	content := "no codes in here at all\n"
	got, err := Expand(content, dict, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != content {
		t.Fatalf("Expand = %q, want unchanged", got)
	}
}

func TestExpanderMatchesPackageExpand(t *testing.T) {
	dictA := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "alpha"},
		DictionaryEntry{Code: "€a", Tier: TierPhrase, Text: "alpha beta gamma"},
	)
	dictB := buildDict(t,
		DictionaryEntry{Code: "฿a", Tier: TierWord, Text: "omega"},
	)

	x, err := NewExpander(4)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		content string
		dict    *Dictionary
		records []AdjacencyRecord
	}{
		{"€a and ฿a", dictA, nil},
		{"฿a€a", dictA, []AdjacencyRecord{{Position: 4, Separator: ' '}}},
		{"฿a forever", dictB, nil},
	}
	for _, tt := range tests {
		// Twice per input so the second decode hits the cached matcher.
		for i := 0; i < 2; i++ {
			want, err := Expand(tt.content, tt.dict, tt.records)
			if err != nil {
				t.Fatal(err)
			}
			got, err := x.Expand(tt.content, tt.dict, tt.records)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Fatalf("Expander.Expand(%q) = %q, want %q", tt.content, got, want)
			}
		}
	}
}

func TestNewExpanderRejectsBadSize(t *testing.T) {
	if _, err := NewExpander(0); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("NewExpander(0) = %v, want ErrInvalidConfig", err)
	}
}
