package coins

import (
	"fmt"
	"sort"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/shopspring/decimal"
)

// Coin is a single denom-tagged decimal amount.
type Coin struct {
	Denom  string          `json:"denom"`
	Amount decimal.Decimal `json:"amount"`
}

// String renders the coin in chain format, e.g. "10.5uusd".
func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// Coins is an ordered list of coins as they appeared on chain.
type Coins []Coin

// String renders the list comma separated.
func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// Find returns the first coin with the given denom.
func (cs Coins) Find(denom string) (Coin, bool) {
	for _, c := range cs {
		if c.Denom == denom {
			return c, true
		}
	}
	return Coin{}, false
}

// Denoms returns the sorted set of denoms in the list.
func (cs Coins) Denoms() []string {
	seen := make(map[string]struct{}, len(cs))
	denoms := make([]string, 0, len(cs))
	for _, c := range cs {
		if _, ok := seen[c.Denom]; ok {
			continue
		}
		seen[c.Denom] = struct{}{}
		denoms = append(denoms, c.Denom)
	}
	sort.Strings(denoms)
	return denoms
}

// Parse parses a comma-separated list of "<decimal><denom>" entries,
// e.g. "34.75uusd,40830ukrw". An empty string yields an empty list.
//
// Each entry follows the cosmos-sdk DecCoin grammar. Unlike sdk.ParseDecCoins the
// input order and zero amounts are preserved.
func Parse(s string) (Coins, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Coins{}, nil
	}

	entries := strings.Split(s, ",")
	result := make(Coins, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			return nil, fmt.Errorf("%w in %q", ErrEmptyCoin, s)
		}

		decCoin, err := sdk.ParseDecCoin(entry)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidCoin, entry, err)
		}

		amount, err := decimal.NewFromString(decCoin.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidCoin, entry, err)
		}

		result = append(result, Coin{Denom: decCoin.Denom, Amount: amount})
	}

	return result, nil
}

// MustParse is Parse for constants in tests and defaults. It panics on error.
func MustParse(s string) Coins {
	cs, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return cs
}
