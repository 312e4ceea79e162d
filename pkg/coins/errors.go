// Package coins provides denom-tagged decimal amounts and parsing of chain coin strings.
package coins

import "errors"

var (
	// ErrInvalidCoin indicates that a coin entry could not be parsed.
	ErrInvalidCoin = errors.New("invalid coin")
	// ErrEmptyCoin indicates an empty entry inside a comma-separated coin list.
	ErrEmptyCoin = errors.New("empty coin entry")
)
