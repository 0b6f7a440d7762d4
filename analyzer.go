package lexpack

import (
	"encoding/binary"
	"sort"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	// maxTemplateLines bounds the height of a template block candidate.
	maxTemplateLines = 8
	// maxPhraseWords bounds phrase n-grams (n = 2..maxPhraseWords).
	maxPhraseWords = 5
	// entryOverhead approximates the framing cost of one persisted
	// dictionary mapping beyond the code and text bytes themselves.
	entryOverhead = 3
)

// candidate is a ranked substitution candidate for one tier.
type candidate struct {
	text        string
	tier        Tier
	occurrences int
	firstSeen   int   // byte offset of the first kept occurrence
	positions   []int // byte offsets of occurrences kept after overlap resolution
	savings     int   // projected net savings in bytes
	rank        int   // tier-specific ranking key
}

// analysis holds the ranked per-tier candidate sets. Degenerate input simply
// produces empty sets.
type analysis struct {
	templates []candidate
	phrases   []candidate
	words     []candidate
}

// analyze discovers repeated template blocks, phrases and words with their
// projected net savings. Later tiers see earlier tiers' regions as taken, so
// a phrase never counts text that a template will collapse first.
func analyze(content string, cfg Config) analysis {
	var out analysis
	var taken intervalSet

	out.templates = findTemplates(content, cfg, &taken)
	tokens := tokenize(content)
	out.phrases = findPhrases(content, tokens, cfg, &taken)
	out.words = findWords(content, tokens, cfg, &taken)
	return out
}

// estimatedCodeLen projects the byte length of a not-yet-allocated code:
// the tier marker plus a typical two-letter body.
func estimatedCodeLen(t Tier) int {
	return len(string(t.Marker())) + 2
}

// netSavings is occurrences×(matchLength − codeLength) minus the dictionary
// overhead of carrying the mapping.
func netSavings(textLen, codeLen, occurrences int) int {
	return occurrences*(textLen-codeLen) - (codeLen + textLen + entryOverhead)
}

// findTemplates clusters identical multi-line blocks via normalized-line
// hashing. Clusters are grouped by hash first, then verified by exact text so
// a hash collision can never produce a lossy entry.
func findTemplates(content string, cfg Config, taken *intervalSet) []candidate {
	lines, offsets := splitLines(content)
	if len(lines) < cfg.MinTemplateLines {
		return nil
	}

	hashes := make([]uint64, len(lines))
	blank := make([]bool, len(lines))
	for i, line := range lines {
		norm := strings.Join(strings.Fields(line), " ")
		hashes[i] = xxhash.Sum64String(norm)
		blank[i] = norm == ""
	}

	lineEnd := func(i int) int { return offsets[i] + len(lines[i]) }

	var cands []candidate
	var scratch [8]byte
	for height := cfg.MinTemplateLines; height <= maxTemplateLines && height <= len(lines); height++ {
		groups := make(map[uint64][]int)
		for i := 0; i+height <= len(lines); i++ {
			if blank[i] {
				continue
			}
			h := xxhash.New()
			for j := 0; j < height; j++ {
				binary.LittleEndian.PutUint64(scratch[:], hashes[i+j])
				_, _ = h.Write(scratch[:])
			}
			key := h.Sum64()
			groups[key] = append(groups[key], i)
		}

		for _, starts := range groups {
			if len(starts) < cfg.MinOccurrences {
				continue
			}
			// Verify clusters by exact text.
			exact := make(map[string][]int)
			for _, i := range starts {
				text := content[offsets[i]:lineEnd(i+height-1)]
				exact[text] = append(exact[text], offsets[i])
			}
			for text, positions := range exact {
				if len(positions) < cfg.MinOccurrences {
					continue
				}
				est := estimatedCodeLen(TierTemplate)
				savings := netSavings(len(text), est, len(positions))
				if savings <= 0 {
					continue
				}
				cands = append(cands, candidate{
					text:        text,
					tier:        TierTemplate,
					occurrences: len(positions),
					firstSeen:   positions[0],
					positions:   positions,
					savings:     savings,
					rank:        (len(positions) - 1) * len(text),
				})
			}
		}
	}

	return greedySelect(cands, taken, cfg.MinOccurrences)
}

// token is a word span in the content.
type token struct {
	start, end int
}

// tokenize returns the word spans of content: maximal runs of letters and
// digits.
func tokenize(content string) []token {
	var tokens []token
	start := -1
	for i, r := range content {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, end: len(content)})
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// variantStat tracks one exact-case spelling of a case-folded key.
type variantStat struct {
	firstSeen int
	positions []int
}

// groupStat accumulates occurrences of one counting key. In case-insensitive
// mode several spellings share a key; the most frequent spelling becomes the
// canonical text (first seen wins ties).
type groupStat struct {
	firstSeen int
	variants  map[string]*variantStat
}

func (g *groupStat) record(text string, pos int) {
	v := g.variants[text]
	if v == nil {
		v = &variantStat{firstSeen: pos}
		g.variants[text] = v
	}
	v.positions = append(v.positions, pos)
}

// canonical picks the spelling to substitute: most occurrences, ties broken
// by first appearance.
func (g *groupStat) canonical() (string, *variantStat) {
	var bestText string
	var best *variantStat
	for text, v := range g.variants {
		switch {
		case best == nil,
			len(v.positions) > len(best.positions),
			len(v.positions) == len(best.positions) && v.firstSeen < best.firstSeen:
			bestText, best = text, v
		}
	}
	return bestText, best
}

// findPhrases extracts word n-grams (n = 2..maxPhraseWords) outside taken
// regions and ranks them by projected net savings.
func findPhrases(content string, tokens []token, cfg Config, taken *intervalSet) []candidate {
	groups := make(map[string]*groupStat)

	record := func(key, text string, pos int) {
		g := groups[key]
		if g == nil {
			g = &groupStat{firstSeen: pos, variants: make(map[string]*variantStat)}
			groups[key] = g
		}
		g.record(text, pos)
	}

	for i := range tokens {
		if taken.overlaps(tokens[i].start, tokens[i].end) {
			continue
		}
		for n := 2; n <= maxPhraseWords; n++ {
			j := i + n - 1
			if j >= len(tokens) {
				break
			}
			if !chainable(content, tokens, i, j, taken) {
				break
			}
			text := content[tokens[i].start:tokens[j].end]
			if len(text) < cfg.MinLength {
				continue
			}
			key := text
			if cfg.CaseInsensitive {
				key = strings.ToLower(text)
			}
			record(key, text, tokens[i].start)
		}
	}

	var cands []candidate
	for _, g := range groups {
		text, v := g.canonical()
		if len(v.positions) < cfg.MinOccurrences {
			continue
		}
		est := estimatedCodeLen(TierPhrase)
		savings := netSavings(len(text), est, len(v.positions))
		if savings <= 0 {
			continue
		}
		cands = append(cands, candidate{
			text:        text,
			tier:        TierPhrase,
			occurrences: len(v.positions),
			firstSeen:   v.firstSeen,
			positions:   v.positions,
			savings:     savings,
			rank:        savings,
		})
	}

	return greedySelect(cands, taken, cfg.MinOccurrences)
}

// chainable reports whether tokens i..j form one phrase span: every gap
// between neighbors is whitespace only and no gap crosses a taken region.
func chainable(content string, tokens []token, i, j int, taken *intervalSet) bool {
	for k := i; k < j; k++ {
		gap := content[tokens[k].end:tokens[k+1].start]
		if strings.TrimSpace(gap) != "" {
			return false
		}
		if taken.overlaps(tokens[k].end, tokens[k+1].start) {
			return false
		}
		if taken.overlaps(tokens[k+1].start, tokens[k+1].end) {
			return false
		}
	}
	return true
}

// findWords counts single tokens over the phrase-reduced text: anything
// inside a template or selected-phrase region is invisible here. Tokens whose
// savings would be negative are dropped (never allocated).
func findWords(content string, tokens []token, cfg Config, taken *intervalSet) []candidate {
	groups := make(map[string]*groupStat)

	for _, tok := range tokens {
		if tok.end-tok.start < cfg.MinWordLength {
			continue
		}
		if taken.overlaps(tok.start, tok.end) {
			continue
		}
		text := content[tok.start:tok.end]
		key := text
		if cfg.CaseInsensitive {
			key = strings.ToLower(text)
		}
		g := groups[key]
		if g == nil {
			g = &groupStat{firstSeen: tok.start, variants: make(map[string]*variantStat)}
			groups[key] = g
		}
		g.record(text, tok.start)
	}

	var cands []candidate
	for _, g := range groups {
		text, v := g.canonical()
		if len(v.positions) < cfg.MinOccurrences {
			continue
		}
		est := estimatedCodeLen(TierWord)
		savings := netSavings(len(text), est, len(v.positions))
		if savings <= 0 {
			continue
		}
		cands = append(cands, candidate{
			text:        text,
			tier:        TierWord,
			occurrences: len(v.positions),
			firstSeen:   v.firstSeen,
			positions:   v.positions,
			savings:     savings,
			rank:        savings,
		})
	}

	sortByRank(cands)
	return cands
}

// greedySelect resolves overlapping candidates: highest savings-per-length
// ratio first, each accepted candidate claiming its occurrence intervals.
// Candidates left with fewer than minOcc non-overlapping occurrences, or with
// non-positive recomputed savings, are dropped.
func greedySelect(cands []candidate, taken *intervalSet, minOcc int) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		ri := float64(cands[i].savings) / float64(len(cands[i].text))
		rj := float64(cands[j].savings) / float64(len(cands[j].text))
		if ri != rj {
			return ri > rj
		}
		if len(cands[i].text) != len(cands[j].text) {
			return len(cands[i].text) > len(cands[j].text)
		}
		if cands[i].firstSeen != cands[j].firstSeen {
			return cands[i].firstSeen < cands[j].firstSeen
		}
		return cands[i].text < cands[j].text
	})

	var accepted []candidate
	for _, c := range cands {
		sort.Ints(c.positions)
		kept := make([]int, 0, len(c.positions))
		lastEnd := -1
		for _, p := range c.positions {
			if p < lastEnd {
				continue
			}
			if taken.overlaps(p, p+len(c.text)) {
				continue
			}
			kept = append(kept, p)
			lastEnd = p + len(c.text)
		}
		if len(kept) < minOcc {
			continue
		}

		est := estimatedCodeLen(c.tier)
		c.positions = kept
		c.occurrences = len(kept)
		c.firstSeen = kept[0]
		c.savings = netSavings(len(c.text), est, len(kept))
		if c.savings <= 0 {
			continue
		}
		if c.tier == TierTemplate {
			c.rank = (len(kept) - 1) * len(c.text)
		} else {
			c.rank = c.savings
		}

		for _, p := range kept {
			taken.add(p, p+len(c.text))
		}
		accepted = append(accepted, c)
	}

	sortByRank(accepted)
	return accepted
}

// sortByRank orders candidates for the allocator: rank descending, then
// longer match, then first-seen.
func sortByRank(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].rank != cands[j].rank {
			return cands[i].rank > cands[j].rank
		}
		if len(cands[i].text) != len(cands[j].text) {
			return len(cands[i].text) > len(cands[j].text)
		}
		if cands[i].firstSeen != cands[j].firstSeen {
			return cands[i].firstSeen < cands[j].firstSeen
		}
		return cands[i].text < cands[j].text
	})
}

// splitLines splits content on '\n', also returning each line's byte offset.
func splitLines(content string) ([]string, []int) {
	var lines []string
	var offsets []int
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			offsets = append(offsets, start)
			start = i + 1
		}
	}
	lines = append(lines, content[start:])
	offsets = append(offsets, start)
	return lines, offsets
}

// intervalSet tracks claimed byte ranges. Intervals are disjoint and kept
// sorted, so membership is a binary search.
type intervalSet struct {
	starts []int
	ends   []int
}

// overlaps reports whether [start, end) intersects any claimed interval.
func (s *intervalSet) overlaps(start, end int) bool {
	i := sort.SearchInts(s.ends, start+1)
	return i < len(s.starts) && s.starts[i] < end
}

// add claims [start, end). The caller checks overlaps first; intervals in the
// set stay disjoint.
func (s *intervalSet) add(start, end int) {
	i := sort.SearchInts(s.starts, start)
	s.starts = append(s.starts, 0)
	copy(s.starts[i+1:], s.starts[i:])
	s.starts[i] = start
	s.ends = append(s.ends, 0)
	copy(s.ends[i+1:], s.ends[i:])
	s.ends[i] = end
}
