package lexpack

import (
	"strings"
	"unicode/utf8"

	"github.com/docpack/lexpack/lpm"
)

// AdjacencyRecord remembers one removed separator. Position is the byte
// offset in the compacted content where the separator must be reinserted
// during reversal.
type AdjacencyRecord struct {
	Position  int  `json:"position"`
	Separator byte `json:"separator"`
}

// codeMatcher builds the longest-match structure over every dictionary code.
// The same structure drives compaction checks and decoding, so the two sides
// can never disagree about how a byte sequence parses.
func codeMatcher(dict *Dictionary) *lpm.Matcher {
	m := lpm.New()
	for i, e := range dict.Entries() {
		m.Insert([]byte(e.Code), uint32(i))
	}
	return m
}

// compact removes the single space between two adjacent codes, but only when
// the decode matcher still resolves the first code unchanged against the
// concatenation; the precondition is checked, not assumed. Ambiguous
// positions keep their separator and produce no record.
func compact(content string, dict *Dictionary) (string, []AdjacencyRecord, LayerResult) {
	res := LayerResult{Layer: "compact", InputSize: len(content)}
	if dict.Len() == 0 {
		res.OutputSize = len(content)
		return content, nil, res
	}

	matcher := codeMatcher(dict)
	data := []byte(content)

	var out strings.Builder
	out.Grow(len(data))
	var records []AdjacencyRecord

	pos := 0
	for pos < len(data) {
		r, size := utf8.DecodeRune(data[pos:])
		if !isMarker(r) {
			out.Write(data[pos : pos+size])
			pos += size
			continue
		}

		_, length, ok := matcher.Find(data[pos:])
		if !ok {
			out.Write(data[pos : pos+size])
			pos += size
			continue
		}

		code := data[pos : pos+length]
		out.Write(code)
		pos += length

		// A separator is dropped only when both neighbors are codes and the
		// concatenation still decodes to this code first.
		if pos < len(data) && data[pos] == ' ' {
			if _, nextLen, nextOK := matcher.Find(data[pos+1:]); nextOK {
				joined := make([]byte, 0, length+nextLen)
				joined = append(joined, code...)
				joined = append(joined, data[pos+1:pos+1+nextLen]...)
				if _, jl, jok := matcher.Find(joined); jok && jl == length {
					records = append(records, AdjacencyRecord{
						Position:  out.Len(),
						Separator: ' ',
					})
					pos++ // skip the separator
					res.Replacements++
				}
			}
		}
	}

	res.OutputSize = out.Len()
	return out.String(), records, res
}
