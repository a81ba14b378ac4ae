package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is returned when a model answer holds no amounts.
var ErrMalformedResponse = errors.New("malformed suggestion response")

type amountsPayload struct {
	RecommendedAmounts []float64 `json:"recommendedAmounts"`
	Snake              []float64 `json:"recommended_amounts"`
}

// ParseAmounts extracts the amounts from a model answer. It accepts a
// {"recommendedAmounts": [...]} object, a bare JSON array, and either of
// them wrapped in a markdown code fence.
func ParseAmounts(text string) ([]float64, error) {
	body := stripFence(strings.TrimSpace(text))
	if body == "" {
		return nil, fmt.Errorf("%w: empty text", ErrMalformedResponse)
	}

	if i := strings.IndexAny(body, "{["); i >= 0 {
		body = body[i:]
	}
	if strings.HasPrefix(body, "[") {
		var arr []float64
		if err := json.NewDecoder(strings.NewReader(body)).Decode(&arr); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return arr, nil
	}

	var p amountsPayload
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if p.RecommendedAmounts != nil {
		return p.RecommendedAmounts, nil
	}
	if p.Snake != nil {
		return p.Snake, nil
	}
	return nil, fmt.Errorf("%w: no recommendedAmounts field", ErrMalformedResponse)
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
