// Package lpm provides longest-match lookup over arbitrary-length patterns.
//
// It serves both directions of the codec: the substitution engine matches
// dictionary source texts against content, and the reversal engine matches
// embedded codes against compressed content. Patterns are arbitrary byte
// strings; IDs are caller-assigned.
package lpm

import (
	"bytes"
	"encoding/binary"
)

// Bit masks for extracting prefixes of different lengths (little-endian).
var masks = [9]uint64{
	0x0000000000000000, // 0 bytes
	0x00000000000000FF, // 1 byte
	0x000000000000FFFF, // 2 bytes
	0x0000000000FFFFFF, // 3 bytes
	0x00000000FFFFFFFF, // 4 bytes
	0x000000FFFFFFFFFF, // 5 bytes
	0x0000FFFFFFFFFFFF, // 6 bytes
	0x00FFFFFFFFFFFFFF, // 7 bytes
	0xFFFFFFFFFFFFFFFF, // 8 bytes
}

// shortLimit is the longest pattern that fits a packed uint64 key.
const shortLimit = 8

// Matcher is a hybrid longest-prefix matcher over arbitrary-length patterns.
//
// Short patterns (≤8 bytes) live in per-length hash tables keyed by their
// packed byte value. Long patterns are bucketed by their 8-byte prefix with
// the suffix stored out of line; buckets stay sorted longest-first so the
// greedy scan can return on the first verified hit.
type Matcher struct {
	shortLookup [shortLimit + 1]map[uint64]uint32 // length → packed bytes → ID
	longBuckets map[uint64][]longEntry            // 8-byte prefix → suffix entries
	suffixes    []byte
	count       int
}

type longEntry struct {
	id    uint32
	start uint32 // suffix range in suffixes
	end   uint32
}

// New creates an empty matcher.
func New() *Matcher {
	return &Matcher{}
}

// Len reports the number of inserted patterns.
func (m *Matcher) Len() int {
	return m.count
}

// Insert adds a pattern with the given ID. Empty patterns and duplicates of
// an already-inserted pattern are rejected.
func (m *Matcher) Insert(pattern []byte, id uint32) bool {
	if len(pattern) == 0 {
		return false
	}

	if len(pattern) <= shortLimit {
		packed := packLE(pattern, len(pattern))
		lookup := m.shortLookup[len(pattern)]
		if lookup == nil {
			lookup = make(map[uint64]uint32)
			m.shortLookup[len(pattern)] = lookup
		}
		if _, dup := lookup[packed]; dup {
			return false
		}
		lookup[packed] = id
		m.count++
		return true
	}

	prefix := packLE(pattern, shortLimit)
	suffix := pattern[shortLimit:]
	if m.longBuckets == nil {
		m.longBuckets = make(map[uint64][]longEntry)
	}
	bucket := m.longBuckets[prefix]
	for _, e := range bucket {
		if bytes.Equal(m.suffixes[e.start:e.end], suffix) {
			return false
		}
	}

	start := uint32(len(m.suffixes))
	m.suffixes = append(m.suffixes, suffix...)
	bucket = append(bucket, longEntry{id: id, start: start, end: uint32(len(m.suffixes))})

	// Keep the bucket sorted by suffix length, longest first. Insertion sort
	// is enough since patterns arrive one at a time.
	for i := len(bucket) - 1; i > 0; i-- {
		if bucket[i].end-bucket[i].start > bucket[i-1].end-bucket[i-1].start {
			bucket[i], bucket[i-1] = bucket[i-1], bucket[i]
		} else {
			break
		}
	}
	m.longBuckets[prefix] = bucket
	m.count++
	return true
}

// Find returns the ID and length of the longest pattern matching a prefix of
// data. The search is two-phase: bucketed long patterns first (already sorted
// longest-first), then packed short patterns from longest to shortest.
func (m *Matcher) Find(data []byte) (uint32, int, bool) {
	if len(data) > shortLimit && m.longBuckets != nil {
		prefix := packLE(data, shortLimit)
		if bucket, ok := m.longBuckets[prefix]; ok {
			rest := data[shortLimit:]
			for _, e := range bucket {
				suffix := m.suffixes[e.start:e.end]
				if len(rest) >= len(suffix) && bytes.HasPrefix(rest, suffix) {
					return e.id, shortLimit + len(suffix), true
				}
			}
		}
	}

	maxLen := len(data)
	if maxLen > shortLimit {
		maxLen = shortLimit
	}

	// Pack once at max length, then mask down per iteration.
	packed := packLE(data, maxLen)
	for length := maxLen; length >= 1; length-- {
		lookup := m.shortLookup[length]
		if lookup == nil {
			continue
		}
		if id, ok := lookup[packed&masks[length]]; ok {
			return id, length, true
		}
	}

	return 0, 0, false
}

// packLE packs up to length bytes into a little-endian uint64, zero padded.
func packLE(data []byte, length int) uint64 {
	if length > shortLimit {
		length = shortLimit
	}
	if len(data) >= shortLimit {
		return binary.LittleEndian.Uint64(data) & masks[length]
	}
	var buf [shortLimit]byte
	copy(buf[:], data)
	return binary.LittleEndian.Uint64(buf[:]) & masks[length]
}
