package suggest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenbank/internal/core"
)

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Request{History: []float64{480, 510.5}, Type: core.Withdrawal})
	assert.Contains(t, p.System, "recommendedAmounts")
	assert.Contains(t, p.User, "Transaction Type: withdrawal")
	assert.Contains(t, p.User, "Transaction History: [480, 510.5]")
	assert.NotContains(t, p.User, "already seen")

	p = BuildPrompt(Request{History: []float64{480}, Type: core.Deposit, Previous: []float64{500, 1000, 1500}})
	assert.Contains(t, p.User, "already seen the following suggestions: [500, 1000, 1500]")
	assert.Contains(t, p.User, "DO NOT repeat")
}

func TestParseAmounts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []float64
	}{
		{name: "object", in: `{"recommendedAmounts":[500,1000,1500]}`, want: []float64{500, 1000, 1500}},
		{name: "snake case", in: `{"recommended_amounts":[1,2,3]}`, want: []float64{1, 2, 3}},
		{name: "bare array", in: `[2000, 2500, 3000]`, want: []float64{2000, 2500, 3000}},
		{name: "fenced", in: "```json\n{\"recommendedAmounts\": [1500, 2000, 2500]}\n```", want: []float64{1500, 2000, 2500}},
		{name: "leading prose", in: `Sure! {"recommendedAmounts":[700,1200,1700]}`, want: []float64{700, 1200, 1700}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmounts(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "five hundred", `{"amounts":[1,2,3]}`, `{"recommendedAmounts":"x"}`} {
		_, err := ParseAmounts(bad)
		assert.True(t, errors.Is(err, ErrMalformedResponse), "input %q", bad)
	}
}
