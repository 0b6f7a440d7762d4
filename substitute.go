package lexpack

import (
	"strings"
	"unicode/utf8"

	"github.com/docpack/lexpack/lpm"
)

// LayerResult is the immutable statistics snapshot of one compression layer.
// The ordered list of results forms the run's provenance trail.
type LayerResult struct {
	Layer        string `json:"layer"`
	InputSize    int    `json:"input_size"`
	OutputSize   int    `json:"output_size"`
	Replacements int    `json:"replacements"`
	Entries      int    `json:"entries"`
}

// substitute applies the three tiers in fixed order (template, phrase, word)
// and returns the transformed content with one LayerResult per tier.
// Collapsing templates first exposes uniform wording for the later tiers.
// Pure function of (content, dict).
func substitute(content string, dict *Dictionary) (string, []LayerResult) {
	results := make([]LayerResult, 0, len(tiers))
	for _, tier := range tiers {
		var res LayerResult
		content, res = substituteTier(content, dict.TierEntries(tier), tier)
		results = append(results, res)
	}
	return content, results
}

// substituteTier scans left to right with a longest-match structure built
// from the tier's source texts. On a match it emits the code and advances
// past the matched span; otherwise it advances one rune. Template matches
// must cover whole lines; phrase and word matches must sit on word
// boundaries unless the entry is flagged sub-token.
func substituteTier(content string, entries []DictionaryEntry, tier Tier) (string, LayerResult) {
	res := LayerResult{
		Layer:     tier.String(),
		InputSize: len(content),
		Entries:   len(entries),
	}
	if len(entries) == 0 {
		res.OutputSize = len(content)
		return content, res
	}

	matcher := lpm.New()
	for i := range entries {
		matcher.Insert([]byte(entries[i].Text), uint32(i))
	}

	data := []byte(content)
	var out strings.Builder
	out.Grow(len(data))

	pos := 0
	for pos < len(data) {
		id, length, ok := matcher.Find(data[pos:])
		if ok {
			e := &entries[id]
			if matchAligned(data, pos, pos+length, tier, e.SubToken) {
				out.WriteString(e.Code)
				res.Replacements++
				pos += length
				continue
			}
		}
		_, size := utf8.DecodeRune(data[pos:])
		out.Write(data[pos : pos+size])
		pos += size
	}

	res.OutputSize = out.Len()
	return out.String(), res
}

// matchAligned checks the alignment rule for a match spanning [start, end).
// Templates are line-aligned; other tiers are word-boundary aware, so a code
// for "net" can never land inside "network".
func matchAligned(data []byte, start, end int, tier Tier, subToken bool) bool {
	if tier == TierTemplate {
		lineStart := start == 0 || data[start-1] == '\n'
		lineEnd := end == len(data) || data[end] == '\n'
		return lineStart && lineEnd
	}
	if subToken {
		return true
	}
	if start > 0 {
		r, _ := utf8.DecodeLastRune(data[:start])
		// A marker means the preceding bytes are an embedded code; matching
		// there would split the code body.
		if isWordRune(r) || isMarker(r) {
			return false
		}
	}
	if end < len(data) {
		r, _ := utf8.DecodeRune(data[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}
