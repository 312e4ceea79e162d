// Package oracle aggregates validator price votes per vote period and reports
// drift, abstention and missed votes.
package oracle

import "errors"

var (
	// ErrInvalidVotePeriod indicates that the vote period is invalid.
	ErrInvalidVotePeriod = errors.New("invalid vote period: cannot be zero")
	// ErrInvalidRewardBand indicates a negative reward band.
	ErrInvalidRewardBand = errors.New("invalid reward band: cannot be negative")
	// ErrMalformedVote indicates an aggregate vote message that could not be used.
	ErrMalformedVote = errors.New("malformed aggregate exchange rate vote")
)
