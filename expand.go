package lexpack

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docpack/lexpack/lpm"
)

// Expand reverses a compression run: separators are reinserted at the
// recorded positions, then every embedded code is replaced by its source
// text in a single longest-match pass. Dictionary texts are stored fully
// expanded (no tier's text contains another tier's codes), so one pass is
// complete; there is no reverse-tier unwinding.
//
// Decode failures are always surfaced: ErrUnknownCode for a marker sequence
// the dictionary cannot resolve, ErrAmbiguousAdjacency for a record that
// cannot be applied.
func Expand(content string, dict *Dictionary, records []AdjacencyRecord) (string, error) {
	return expandWith(content, dict, codeMatcher(dict), records)
}

func expandWith(content string, dict *Dictionary, matcher *lpm.Matcher, records []AdjacencyRecord) (string, error) {
	restored, err := reinsertSeparators(content, records)
	if err != nil {
		return "", err
	}

	entries := dict.Entries()
	data := []byte(restored)
	var out strings.Builder
	out.Grow(len(data) * 2)

	pos := 0
	for pos < len(data) {
		r, size := utf8.DecodeRune(data[pos:])
		if !isMarker(r) {
			out.Write(data[pos : pos+size])
			pos += size
			continue
		}
		id, length, ok := matcher.Find(data[pos:])
		if !ok {
			return "", fmt.Errorf("%w: %q at offset %d", ErrUnknownCode, snippet(data[pos:]), pos)
		}
		out.WriteString(entries[id].Text)
		pos += length
	}

	return out.String(), nil
}

// reinsertSeparators applies adjacency records. Positions refer to the
// compacted content, so applying them in descending order keeps earlier
// offsets valid. Out-of-range or duplicate positions cannot be resolved
// uniquely and fail the decode.
func reinsertSeparators(content string, records []AdjacencyRecord) (string, error) {
	if len(records) == 0 {
		return content, nil
	}

	sorted := make([]AdjacencyRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	data := []byte(content)
	for i, rec := range sorted {
		if rec.Position < 0 || rec.Position > len(content) {
			return "", fmt.Errorf("%w: position %d outside content of %d bytes",
				ErrAmbiguousAdjacency, rec.Position, len(content))
		}
		if i > 0 && sorted[i-1].Position == rec.Position {
			return "", fmt.Errorf("%w: duplicate position %d", ErrAmbiguousAdjacency, rec.Position)
		}
		sep := rec.Separator
		if sep == 0 {
			sep = ' '
		}
		data = append(data, 0)
		copy(data[rec.Position+1:], data[rec.Position:])
		data[rec.Position] = sep
	}

	return string(data), nil
}

// snippet trims a decode error context to something printable.
func snippet(data []byte) string {
	const max = 12
	if len(data) > max {
		data = data[:max]
	}
	return string(data)
}

// Expander decompresses many documents that share dictionaries. Decode
// matchers are cached in an LRU keyed by dictionary fingerprint, so decoding
// a batch against a handful of dictionaries builds each matcher once.
// Safe for concurrent use.
type Expander struct {
	cache *lru.Cache[uint64, *lpm.Matcher]
}

// NewExpander creates an Expander caching up to size decode matchers.
func NewExpander(size int) (*Expander, error) {
	cache, err := lru.New[uint64, *lpm.Matcher](size)
	if err != nil {
		return nil, fmt.Errorf("%w: cache size %d", ErrInvalidConfig, size)
	}
	return &Expander{cache: cache}, nil
}

// Expand behaves like the package-level Expand with matcher reuse.
func (x *Expander) Expand(content string, dict *Dictionary, records []AdjacencyRecord) (string, error) {
	key := dict.Fingerprint()
	matcher, ok := x.cache.Get(key)
	if !ok {
		matcher = codeMatcher(dict)
		x.cache.Add(key, matcher)
	}
	return expandWith(content, dict, matcher, records)
}
