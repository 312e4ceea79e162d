package coins

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string // denom=amount
		wantErr bool
	}{
		{
			name:  "empty string",
			input: "",
			want:  []string{},
		},
		{
			name:  "single integer coin",
			input: "1000uluna",
			want:  []string{"uluna=1000"},
		},
		{
			name:  "oracle vote order preserved",
			input: "34.750000000000000000uusd,40830.000000000000000000ukrw,24.449822000000001054usdr",
			want:  []string{"uusd=34.75", "ukrw=40830", "usdr=24.449822000000001054"},
		},
		{
			name:  "zero amounts kept",
			input: "0.000000000000000000ukrw,0.0005umnt",
			want:  []string{"ukrw=0", "umnt=0.0005"},
		},
		{
			name:  "whitespace around entries",
			input: " 1.5uusd , 2ukrw ",
			want:  []string{"uusd=1.5", "ukrw=2"},
		},
		{
			name:    "missing denom",
			input:   "12.5",
			wantErr: true,
		},
		{
			name:    "trailing comma",
			input:   "1uusd,",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "uusd12",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			require.Len(t, got, len(tt.want))
			for i, c := range got {
				want := tt.want[i]
				assert.Equal(t, want, c.Denom+"="+c.Amount.String())
			}
		})
	}
}

func TestParseErrorIsTyped(t *testing.T) {
	_, err := Parse("1uusd,,2ukrw")
	assert.ErrorIs(t, err, ErrEmptyCoin)

	_, err = Parse("abc")
	assert.ErrorIs(t, err, ErrInvalidCoin)
}

func TestCoinsHelpers(t *testing.T) {
	cs := MustParse("10.5uusd,3ukrw,1uusd")

	c, ok := cs.Find("ukrw")
	require.True(t, ok)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(3)))

	_, ok = cs.Find("ueur")
	assert.False(t, ok)

	assert.Equal(t, []string{"ukrw", "uusd"}, cs.Denoms())
	assert.Equal(t, "10.5uusd,3ukrw,1uusd", cs.String())
}
