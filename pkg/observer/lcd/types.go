package lcd

import (
	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-watch/pkg/chain"
)

// OracleParams are the oracle module parameters.
type OracleParams struct {
	VotePeriod               chain.Uint64    `json:"vote_period"`
	VoteThreshold            decimal.Decimal `json:"vote_threshold"`
	RewardBand               decimal.Decimal `json:"reward_band"`
	RewardDistributionWindow chain.Uint64    `json:"reward_distribution_window"`
	Whitelist                []Denom         `json:"whitelist"`
	SlashFraction            decimal.Decimal `json:"slash_fraction"`
	SlashWindow              chain.Uint64    `json:"slash_window"`
	MinValidPerWindow        decimal.Decimal `json:"min_valid_per_window"`
}

// Denom is a whitelisted oracle denom.
type Denom struct {
	Name     string          `json:"name"`
	TobinTax decimal.Decimal `json:"tobin_tax"`
}

type paramsResponse struct {
	Params OracleParams `json:"params"`
}

// Validator is the subset of a staking validator the observer needs.
type Validator struct {
	OperatorAddress string       `json:"operator_address"`
	Jailed          bool         `json:"jailed"`
	Status          string       `json:"status"`
	Tokens          chain.Uint64 `json:"tokens"`
	Description     struct {
		Moniker string `json:"moniker"`
	} `json:"description"`
}

// Moniker returns the validator's display name.
func (v Validator) Moniker() string {
	return v.Description.Moniker
}

type validatorsResponse struct {
	Validators []Validator `json:"validators"`
	Pagination struct {
		NextKey *string `json:"next_key"`
	} `json:"pagination"`
}
