package population

import "errors"

// Domain errors for population state.
var (
	// ErrDuplicateAgent indicates two agents share an ID.
	ErrDuplicateAgent = errors.New("duplicate agent ID")

	// ErrEmptyPopulation indicates no agents were declared.
	ErrEmptyPopulation = errors.New("population has no agents")

	// ErrAgentNotFound indicates the agent is not in the population.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrPostNotFound indicates the post is not in the content store.
	ErrPostNotFound = errors.New("post not found")

	// ErrRoundRegression indicates an attempt to move the round number backwards.
	ErrRoundRegression = errors.New("round number must increase")
)
