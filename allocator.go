package lexpack

import (
	"time"
)

// The code body alphabet is split in two: a code body is zero or more
// continuation letters followed by exactly one final letter. A proper prefix
// of a body therefore never ends in a final letter, which makes every
// enumerated body prefix-free against every other by construction.
const (
	codeFinals        = "abcdefghijklm"
	codeContinuations = "nopqrstuvwxyz"
	maxCodeBody       = 3
)

// codeSpaceSize is the number of codes one tier can ever hold:
// 13 + 13·13 + 13·13·13 bodies of length 1..3.
const codeSpaceSize = 13 + 13*13 + 13*13*13

// codeSpace enumerates the bounded code space of one tier, shortest bodies
// first. The exhausted flag is the explicit terminal state: once set, the
// space never yields another code.
type codeSpace struct {
	tier      Tier
	next      int
	exhausted bool
}

func newCodeSpace(t Tier) *codeSpace {
	return &codeSpace{tier: t}
}

// peek returns the code the next call to take would yield, without consuming
// it. ok is false once the space is exhausted.
func (s *codeSpace) peek() (string, bool) {
	if s.exhausted || s.next >= codeSpaceSize {
		s.exhausted = true
		return "", false
	}
	return string(s.tier.Marker()) + codeBody(s.next), true
}

// take consumes and returns the next code.
func (s *codeSpace) take() (string, bool) {
	code, ok := s.peek()
	if !ok {
		return "", false
	}
	s.next++
	if s.next >= codeSpaceSize {
		s.exhausted = true
	}
	return code, true
}

// codeBody maps an enumeration index to its prefix-free body.
func codeBody(idx int) string {
	const n = len(codeFinals)
	switch {
	case idx < n:
		return string(codeFinals[idx])
	case idx < n+n*n:
		i := idx - n
		return string(codeContinuations[i/n]) + string(codeFinals[i%n])
	default:
		i := idx - n - n*n
		return string(codeContinuations[i/(n*n)]) +
			string(codeContinuations[i/n%n]) +
			string(codeFinals[i%n])
	}
}

// allocStats reports soft allocator outcomes; none of them fail a run.
type allocStats struct {
	allocated int
	dropped   int           // candidates dropped for non-positive real savings
	exhausted map[Tier]bool // tiers that ran out of code space
	conflicts int           // codes skipped by the prefix check
}

// allocate assigns collision-free codes to ranked candidates and builds the
// dictionary. Shortest codes go to the highest-ranked candidates of each
// tier. Every code is verified to be prefix-free against all codes allocated
// so far, across all tiers and any pre-existing dictionary; conflicts
// regenerate with the next enumerated code. Code-space exhaustion drops the
// remaining (lowest-value) candidates of that tier, never the run.
func allocate(an analysis, existing *Dictionary, now time.Time) (*Dictionary, allocStats) {
	dict := NewDictionary()
	stats := allocStats{exhausted: make(map[Tier]bool)}

	reserved := make([]string, 0, 16)
	if existing != nil {
		for _, e := range existing.Entries() {
			reserved = append(reserved, e.Code)
		}
	}

	conflicts := func(code string) bool {
		for _, r := range reserved {
			if prefixConflict(r, code) {
				return true
			}
		}
		for _, e := range dict.Entries() {
			if prefixConflict(e.Code, code) {
				return true
			}
		}
		return false
	}

	byTier := map[Tier][]candidate{
		TierTemplate: an.templates,
		TierPhrase:   an.phrases,
		TierWord:     an.words,
	}

	for _, tier := range tiers {
		space := newCodeSpace(tier)
		for _, cand := range byTier[tier] {
			var code string
			for {
				next, ok := space.peek()
				if !ok {
					stats.exhausted[tier] = true
					break
				}
				if conflicts(next) {
					// Regenerate with the next candidate code.
					_, _ = space.take()
					stats.conflicts++
					continue
				}
				code = next
				break
			}
			if stats.exhausted[tier] {
				break
			}

			// Net-savings guard with the actual code, not the estimate.
			if netSavings(len(cand.text), len(code), cand.occurrences) <= 0 {
				stats.dropped++
				continue
			}

			_, _ = space.take()
			if err := dict.Add(DictionaryEntry{
				Code:        code,
				Tier:        tier,
				Text:        cand.text,
				Occurrences: cand.occurrences,
				CreatedAt:   now,
			}); err != nil {
				// Unreachable given the checks above; count it like a
				// conflict and move on rather than failing the run.
				stats.conflicts++
				continue
			}
			stats.allocated++
		}
	}

	return dict, stats
}
