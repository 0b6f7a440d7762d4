// Package lexpack reduces text documents by replacing recurring structural
// blocks, phrases and words with short reserved codes recorded in a
// dictionary that permits exact reconstruction.
//
// A compression run discovers candidates per tier (template, phrase, word),
// allocates collision-free marker-prefixed codes, substitutes tiers in fixed
// order, compacts separators between adjacent codes, and self-verifies the
// round trip before returning. Expand reverses a run using the run's
// dictionary and adjacency records; expand(compress(x)) == x for every valid
// input, or the run fails closed.
package lexpack

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Config holds the thresholds of a compression run.
type Config struct {
	// MinOccurrences is the minimum number of repetitions a candidate needs
	// in any tier.
	MinOccurrences int
	// MinLength is the minimum phrase length in bytes.
	MinLength int
	// MinWordLength is the minimum word length in bytes.
	MinWordLength int
	// MinTemplateLines is the minimum height of a template block.
	MinTemplateLines int
	// CaseInsensitive merges case variants while counting candidates. The
	// engine still substitutes only the canonical spelling, so reversal
	// stays byte-exact.
	CaseInsensitive bool
	// Reuse provides an existing dictionary whose codes are treated as
	// already taken during allocation.
	Reuse *Dictionary
}

func defaultConfig() Config {
	return Config{
		MinOccurrences:   3,
		MinLength:        15,
		MinWordLength:    4,
		MinTemplateLines: 2,
	}
}

func (c Config) validate() error {
	if c.MinOccurrences < 2 {
		return fmt.Errorf("%w: MinOccurrences %d (need ≥ 2)", ErrInvalidConfig, c.MinOccurrences)
	}
	if c.MinLength < 2 {
		return fmt.Errorf("%w: MinLength %d (need ≥ 2)", ErrInvalidConfig, c.MinLength)
	}
	if c.MinWordLength < 2 {
		return fmt.Errorf("%w: MinWordLength %d (need ≥ 2)", ErrInvalidConfig, c.MinWordLength)
	}
	if c.MinTemplateLines < 2 {
		return fmt.Errorf("%w: MinTemplateLines %d (need ≥ 2)", ErrInvalidConfig, c.MinTemplateLines)
	}
	if c.Reuse != nil {
		if err := c.Reuse.Validate(); err != nil {
			return fmt.Errorf("%w: reused dictionary: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Option is a functional option for configuring a run.
type Option func(*Config)

// WithMinOccurrences sets the repetition threshold for all tiers.
func WithMinOccurrences(n int) Option {
	return func(c *Config) { c.MinOccurrences = n }
}

// WithMinLength sets the minimum phrase length in bytes.
func WithMinLength(n int) Option {
	return func(c *Config) { c.MinLength = n }
}

// WithMinWordLength sets the minimum word length in bytes.
func WithMinWordLength(n int) Option {
	return func(c *Config) { c.MinWordLength = n }
}

// WithMinTemplateLines sets the minimum template block height.
func WithMinTemplateLines(n int) Option {
	return func(c *Config) { c.MinTemplateLines = n }
}

// WithCaseInsensitive merges case variants during candidate counting.
func WithCaseInsensitive() Option {
	return func(c *Config) { c.CaseInsensitive = true }
}

// WithDictionary reserves the codes of an existing dictionary during
// allocation, so a new run can coexist with previously issued codes.
func WithDictionary(d *Dictionary) Option {
	return func(c *Config) { c.Reuse = d }
}

// PipelineRun is the frozen result of one compression run: the ordered layer
// results, the final dictionary, the adjacency records and the round-trip
// verification flag. It is the unit handed to the audit collaborator. Runs
// share no state; documents may be compressed fully in parallel.
type PipelineRun struct {
	ID        string
	CreatedAt time.Time

	// Content is the compacted compressed content.
	Content    string
	InputSize  int
	OutputSize int

	Layers     []LayerResult
	Dictionary *Dictionary
	Adjacency  []AdjacencyRecord

	// Verified is true when the self round trip reproduced the input
	// exactly. Compress never returns an unverified run.
	Verified bool

	// DroppedCandidates counts candidates discarded by the net-savings
	// guard; ExhaustedTiers lists tiers that ran out of code space. Both
	// degrade the ratio, never the run.
	DroppedCandidates int
	ExhaustedTiers    []Tier
}

// Ratio reports output size over input size; 1.0 means no reduction.
func (r *PipelineRun) Ratio() float64 {
	if r.InputSize == 0 {
		return 1
	}
	return float64(r.OutputSize) / float64(r.InputSize)
}

// Compress runs the full forward pipeline on sanitized content and
// self-verifies the result. The returned run's dictionary is frozen.
//
// Content that already contains a reserved tier marker cannot be told apart
// from embedded codes and is rejected with ErrReservedMarker before any
// processing. Compressing already-compressed output fails loudly instead of
// introducing spurious matches.
func Compress(content string, opts ...Option) (*PipelineRun, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if containsMarker(content) {
		return nil, ErrReservedMarker
	}

	now := time.Now()
	an := analyze(content, cfg)
	dict, stats := allocate(an, cfg.Reuse, now)

	substituted, layers := substitute(content, dict)
	dict.Freeze()

	compacted, records, compactRes := compact(substituted, dict)
	layers = append(layers, compactRes)

	// Round-trip self-validation: the output is either exact or discarded.
	restored, err := Expand(compacted, dict, records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoundTripMismatch, err)
	}
	if restored != content {
		return nil, ErrRoundTripMismatch
	}

	run := &PipelineRun{
		ID:                newRunID(),
		CreatedAt:         now,
		Content:           compacted,
		InputSize:         len(content),
		OutputSize:        len(compacted),
		Layers:            layers,
		Dictionary:        dict,
		Adjacency:         records,
		Verified:          true,
		DroppedCandidates: stats.dropped,
	}
	for _, tier := range tiers {
		if stats.exhausted[tier] {
			run.ExhaustedTiers = append(run.ExhaustedTiers, tier)
		}
	}
	return run, nil
}

// newRunID returns a unique id for audit keying. Duplicate appends under the
// same id are harmless, so collision resistance of 8 random bytes is plenty.
func newRunID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fall back to a time-derived id; uniqueness per process is enough.
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}
