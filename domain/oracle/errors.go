package oracle

import "errors"

// Domain errors for ambiguity resolution.
var (
	// ErrAmbiguityResolution indicates the oracle could not produce a usable
	// answer. Callers fall back to the first candidate.
	ErrAmbiguityResolution = errors.New("ambiguity resolution failed")

	// ErrInvalidAnswer indicates the oracle chose a state outside the candidates.
	ErrInvalidAnswer = errors.New("oracle answer is not a candidate")

	// ErrOraclePanic indicates the oracle panicked.
	ErrOraclePanic = errors.New("oracle panicked")

	// ErrNoCandidates indicates resolution was requested with nothing to choose from.
	ErrNoCandidates = errors.New("no candidates to choose from")
)
