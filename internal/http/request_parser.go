// This file implements utilities for parsing and validating request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"zenbank/internal/core"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 64 << 10

// MaxHistoryLimit caps the limit query parameter of the history endpoint.
const MaxHistoryLimit = 1000

// decodeJSON reads exactly one JSON object from the body into dst. Unknown
// fields, trailing data and oversized bodies are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxErr.Limit)
		default:
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

// flexAmount accepts an amount as a JSON string ("12.34", "12,34") or a
// JSON number and keeps its literal text for exact decimal parsing.
type flexAmount string

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = flexAmount(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	*a = flexAmount(n.String())
	return nil
}

// Money parses the amount with the domain rules.
func (a flexAmount) Money() (core.Money, error) {
	return core.ParseAmount(string(a))
}

// ParseHistoryQuery reads the optional type and limit parameters.
func ParseHistoryQuery(query url.Values) (core.TransactionType, int, error) {
	var filter core.TransactionType
	if v := strings.TrimSpace(query.Get("type")); v != "" && v != "all" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return "", 0, err
		}
		filter = t
	}

	limit := 0
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > MaxHistoryLimit {
			return "", 0, fmt.Errorf("%w: limit must be between 0 and %d", errBadRequest, MaxHistoryLimit)
		}
		limit = n
	}
	return filter, limit, nil
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
