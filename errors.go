package lexpack

import "errors"

// Sentinel errors for compression and expansion.
var (
	// ErrInvalidConfig is returned when a configuration threshold is rejected
	// before any processing starts.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrReservedMarker is returned when codec input already contains a
	// reserved tier-marker rune. Marker-bearing input cannot be distinguished
	// from embedded codes, so the run fails closed instead of guessing.
	ErrReservedMarker = errors.New("reserved tier marker in input")
	// ErrInvalidEntry is returned when a dictionary entry violates an
	// invariant: empty text, marker rune inside text, duplicate code, wrong
	// tier marker, or a prefix conflict with an existing code.
	ErrInvalidEntry = errors.New("invalid dictionary entry")
	// ErrFrozenDictionary is returned when appending to a dictionary after the
	// substitution pass has frozen it.
	ErrFrozenDictionary = errors.New("dictionary is frozen")
	// ErrUnknownCode is returned by Expand when a marker rune starts a
	// sequence that matches no dictionary code. It indicates a dictionary or
	// version mismatch and is always fatal to that decode.
	ErrUnknownCode = errors.New("unknown code")
	// ErrAmbiguousAdjacency is returned by Expand when a separator cannot be
	// reinserted at a recorded position. Unreachable if the records came from
	// the compactor, but checked rather than assumed.
	ErrAmbiguousAdjacency = errors.New("ambiguous adjacency record")
	// ErrRoundTripMismatch is returned when self-verification fails; the
	// compressed output is discarded, never delivered.
	ErrRoundTripMismatch = errors.New("round-trip verification failed")
	// ErrUnsupportedVersion is returned by Dictionary.ReadFrom for a format
	// version this codec does not understand.
	ErrUnsupportedVersion = errors.New("unsupported dictionary format version")
)
