package lexpack

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// FormatVersion identifies the dictionary wire format. A Dictionary produced
// by one codec version is checked against this before reuse.
const FormatVersion = 1

// Tier identifies one of the three code namespaces. Tiers are applied in
// declaration order during compression.
type Tier uint8

const (
	// TierTemplate holds multi-line structural blocks.
	TierTemplate Tier = iota + 1
	// TierPhrase holds multi-word phrases.
	TierPhrase
	// TierWord holds single words.
	TierWord
)

// tiers is the fixed application order: Template → Phrase → Word.
var tiers = [...]Tier{TierTemplate, TierPhrase, TierWord}

// Marker returns the reserved rune that prefixes every code of the tier.
// Each tier owns a disjoint marker, so cross-tier collisions are impossible
// by construction.
func (t Tier) Marker() rune {
	switch t {
	case TierTemplate:
		return '§'
	case TierPhrase:
		return '€'
	case TierWord:
		return '฿'
	}
	return utf8.RuneError
}

func (t Tier) String() string {
	switch t {
	case TierTemplate:
		return "template"
	case TierPhrase:
		return "phrase"
	case TierWord:
		return "word"
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

func isMarker(r rune) bool {
	return r == '§' || r == '€' || r == '฿'
}

// containsMarker reports whether s contains any reserved tier-marker rune.
func containsMarker(s string) bool {
	return strings.ContainsAny(s, "§€฿")
}

// prefixConflict reports whether one code is a prefix of the other. Either
// direction breaks unambiguous longest-match decoding.
func prefixConflict(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// DictionaryEntry maps one code to its source text.
type DictionaryEntry struct {
	Code        string
	Tier        Tier
	Text        string
	Occurrences int
	// SubToken marks an entry that may match inside a longer token. Regular
	// phrase and word entries only match at word boundaries.
	SubToken  bool
	CreatedAt time.Time
}

// Dictionary is the ordered code→text mapping produced by one compression
// run. Entries are appended during the forward pass and the dictionary is
// frozen once the substitution engine finishes; afterwards it is read-only.
type Dictionary struct {
	entries []DictionaryEntry
	byCode  map[string]int
	frozen  bool
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{byCode: make(map[string]int)}
}

// Add appends an entry after re-checking every invariant: tier marker shape,
// non-empty marker-free text, code uniqueness and prefix-freedom. The
// allocator already guarantees these; Add verifies rather than trusts.
func (d *Dictionary) Add(e DictionaryEntry) error {
	if d.frozen {
		return ErrFrozenDictionary
	}
	marker := e.Tier.Marker()
	if marker == utf8.RuneError {
		return fmt.Errorf("%w: code %q has unknown tier", ErrInvalidEntry, e.Code)
	}
	if !strings.HasPrefix(e.Code, string(marker)) || len(e.Code) == len(string(marker)) {
		return fmt.Errorf("%w: code %q does not carry the %s marker", ErrInvalidEntry, e.Code, e.Tier)
	}
	if e.Text == "" {
		return fmt.Errorf("%w: code %q has empty text", ErrInvalidEntry, e.Code)
	}
	if containsMarker(e.Text) {
		return fmt.Errorf("%w: text for %q contains a reserved marker", ErrInvalidEntry, e.Code)
	}
	if _, dup := d.byCode[e.Code]; dup {
		return fmt.Errorf("%w: duplicate code %q", ErrInvalidEntry, e.Code)
	}
	for i := range d.entries {
		if prefixConflict(d.entries[i].Code, e.Code) {
			return fmt.Errorf("%w: code %q conflicts with %q", ErrInvalidEntry, e.Code, d.entries[i].Code)
		}
	}
	d.byCode[e.Code] = len(d.entries)
	d.entries = append(d.entries, e)
	return nil
}

// Freeze marks the dictionary read-only.
func (d *Dictionary) Freeze() {
	d.frozen = true
}

// Frozen reports whether the dictionary accepts further entries.
func (d *Dictionary) Frozen() bool {
	return d.frozen
}

// Len reports the number of entries.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Entries returns the entries in allocation order. The slice is shared;
// callers must treat it as read-only.
func (d *Dictionary) Entries() []DictionaryEntry {
	return d.entries
}

// TierEntries returns the entries of one tier in allocation order.
func (d *Dictionary) TierEntries(t Tier) []DictionaryEntry {
	var out []DictionaryEntry
	for i := range d.entries {
		if d.entries[i].Tier == t {
			out = append(out, d.entries[i])
		}
	}
	return out
}

// Lookup returns the entry for a code.
func (d *Dictionary) Lookup(code string) (DictionaryEntry, bool) {
	i, ok := d.byCode[code]
	if !ok {
		return DictionaryEntry{}, false
	}
	return d.entries[i], true
}

// Validate re-checks all invariants over the full entry set. Used after
// deserialization, where entries bypass Add.
func (d *Dictionary) Validate() error {
	seen := make(map[string]int, len(d.entries))
	for i := range d.entries {
		e := &d.entries[i]
		marker := e.Tier.Marker()
		if marker == utf8.RuneError {
			return fmt.Errorf("%w: entry %d has unknown tier", ErrInvalidEntry, i)
		}
		if !strings.HasPrefix(e.Code, string(marker)) || len(e.Code) == len(string(marker)) {
			return fmt.Errorf("%w: code %q does not carry the %s marker", ErrInvalidEntry, e.Code, e.Tier)
		}
		if e.Text == "" || containsMarker(e.Text) {
			return fmt.Errorf("%w: code %q has invalid text", ErrInvalidEntry, e.Code)
		}
		if _, dup := seen[e.Code]; dup {
			return fmt.Errorf("%w: duplicate code %q", ErrInvalidEntry, e.Code)
		}
		seen[e.Code] = i
	}
	for i := range d.entries {
		for j := i + 1; j < len(d.entries); j++ {
			if prefixConflict(d.entries[i].Code, d.entries[j].Code) {
				return fmt.Errorf("%w: code %q conflicts with %q",
					ErrInvalidEntry, d.entries[i].Code, d.entries[j].Code)
			}
		}
	}
	return nil
}

// Fingerprint hashes the code/tier/text triples in order. Two dictionaries
// with the same fingerprint decode identically; occurrence counts and
// timestamps do not participate.
func (d *Dictionary) Fingerprint() uint64 {
	h := xxhash.New()
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], FormatVersion)
	_, _ = h.Write(scratch[:])
	for i := range d.entries {
		e := &d.entries[i]
		_, _ = h.Write([]byte{byte(e.Tier)})
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(e.Code)))
		_, _ = h.Write(scratch[:])
		_, _ = h.WriteString(e.Code)
		binary.LittleEndian.PutUint64(scratch[:], uint64(len(e.Text)))
		_, _ = h.Write(scratch[:])
		_, _ = h.WriteString(e.Text)
	}
	return h.Sum64()
}

// WriteTo serializes the dictionary.
// Layout:
// - 8 bytes: format version
// - 4 bytes: entry count
// - per entry: tier (1), subtoken flag (1), occurrences (4),
//   created-at unix nanos (8), code length (2) + code bytes,
//   text length (4) + text bytes
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	var n int64

	if err := binary.Write(w, binary.LittleEndian, uint64(FormatVersion)); err != nil {
		return n, err
	}
	n += 8

	if err := binary.Write(w, binary.LittleEndian, uint32(len(d.entries))); err != nil {
		return n, err
	}
	n += 4

	for i := range d.entries {
		e := &d.entries[i]
		var flags uint8
		if e.SubToken {
			flags = 1
		}
		header := []any{
			uint8(e.Tier),
			flags,
			uint32(e.Occurrences),
			e.CreatedAt.UnixNano(),
			uint16(len(e.Code)),
		}
		for _, v := range header {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return n, err
			}
		}
		n += 1 + 1 + 4 + 8 + 2

		written, err := io.WriteString(w, e.Code)
		n += int64(written)
		if err != nil {
			return n, err
		}

		if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Text))); err != nil {
			return n, err
		}
		n += 4

		written, err = io.WriteString(w, e.Text)
		n += int64(written)
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// ReadFrom deserializes a dictionary and validates it. The restored
// dictionary is frozen: it came from a finished run.
func (d *Dictionary) ReadFrom(r io.Reader) (int64, error) {
	var n int64

	var version uint64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return n, err
	}
	n += 8
	if version != FormatVersion {
		return n, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return n, err
	}
	n += 4

	d.entries = make([]DictionaryEntry, 0, count)
	d.byCode = make(map[string]int, count)

	for i := uint32(0); i < count; i++ {
		var (
			tier    uint8
			flags   uint8
			occ     uint32
			created int64
			codeLen uint16
			textLen uint32
		)
		if err := binary.Read(r, binary.LittleEndian, &tier); err != nil {
			return n, err
		}
		if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
			return n, err
		}
		if err := binary.Read(r, binary.LittleEndian, &occ); err != nil {
			return n, err
		}
		if err := binary.Read(r, binary.LittleEndian, &created); err != nil {
			return n, err
		}
		if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
			return n, err
		}
		n += 1 + 1 + 4 + 8 + 2

		code := make([]byte, codeLen)
		read, err := io.ReadFull(r, code)
		n += int64(read)
		if err != nil {
			return n, err
		}

		if err := binary.Read(r, binary.LittleEndian, &textLen); err != nil {
			return n, err
		}
		n += 4

		text := make([]byte, textLen)
		read, err = io.ReadFull(r, text)
		n += int64(read)
		if err != nil {
			return n, err
		}

		d.byCode[string(code)] = len(d.entries)
		d.entries = append(d.entries, DictionaryEntry{
			Code:        string(code),
			Tier:        Tier(tier),
			Text:        string(text),
			Occurrences: int(occ),
			SubToken:    flags&1 != 0,
			CreatedAt:   time.Unix(0, created),
		})
	}

	if err := d.Validate(); err != nil {
		return n, err
	}
	d.frozen = true
	return n, nil
}
