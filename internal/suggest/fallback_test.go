package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"zenbank/internal/core"
)

func TestFallback(t *testing.T) {
	tests := []struct {
		name     string
		history  []float64
		previous []float64
		want     []float64
	}{
		{name: "worked example", history: []float64{480, 510, 495}, want: []float64{500, 1000, 1500}},
		{name: "rounds to nearest 500", history: []float64{2100, 2200, 1900}, want: []float64{2000, 2500, 3000}},
		{name: "small mean forced to 500", history: []float64{20, 50}, want: []float64{500, 1000, 1500}},
		{name: "half rounds up", history: []float64{750}, want: []float64{1000, 1500, 2000}},
		{name: "longer history uses mean", history: []float64{1000, 1000, 1000, 1000, 6000}, want: []float64{2000, 2500, 3000}},
		{name: "base already shown moves up", history: []float64{480, 510, 495}, previous: []float64{500, 1000, 1500}, want: []float64{1000, 1500, 2000}},
		{name: "base shown alone moves up", history: []float64{2000}, previous: []float64{2000, 9000, 9500}, want: []float64{2500, 3000, 3500}},
		{name: "previous without base keeps candidates", history: []float64{1000}, previous: []float64{1500, 2000, 2500}, want: []float64{1000, 1500, 2000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{History: tt.history, Type: core.Deposit, Previous: tt.previous}
			got := Fallback(req)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 3)
			if len(tt.previous) > 0 {
				assert.False(t, SameSet(got, tt.previous))
			}
		})
	}
}

func TestFallbackNeverRepeatsPreviousTriple(t *testing.T) {
	for _, a := range []float64{500, 1000, 2500, 10000} {
		prev := []float64{a, a + 500, a + 1000}
		req := Request{History: []float64{a, a, a}, Type: core.Withdrawal, Previous: prev}

		got := Fallback(req)

		assert.Equal(t, []float64{a + 500, a + 1000, a + 1500}, got)
		assert.False(t, SameSet(got, prev))
	}

	req := Request{History: []float64{100}, Previous: []float64{500, 1000, 1500}}
	assert.Equal(t, []float64{1000, 1500, 2000}, Fallback(req))
}

func TestFallbackIsDeterministic(t *testing.T) {
	req := Request{History: []float64{1234, 987, 1500}, Type: core.Withdrawal}
	first := Fallback(req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fallback(req))
	}
}

func TestSameSet(t *testing.T) {
	assert.True(t, SameSet([]float64{3, 1, 2}, []float64{1, 2, 3}))
	assert.False(t, SameSet([]float64{1, 2}, []float64{1, 2, 3}))
	assert.False(t, SameSet([]float64{1, 2, 4}, []float64{1, 2, 3}))

	in := []float64{3, 1, 2}
	SameSet(in, []float64{1, 2, 3})
	assert.Equal(t, []float64{3, 1, 2}, in, "inputs must not be reordered")
}
