// Package suggest produces three candidate amounts for a deposit or
// withdrawal. A generative model is asked first; its answer is sanitised and
// checked, and a deterministic heuristic takes over whenever the model is
// missing, fails, or answers with the default or an already shown triple.
package suggest

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"zenbank/internal/core"
	"zenbank/internal/log"
)

// DefaultAmounts is returned when there is no history to learn from.
var DefaultAmounts = []float64{500, 1000, 2000}

const DefaultTimeout = 8 * time.Second

type Request struct {
	History  []float64 // most recent first
	Type     core.TransactionType
	Previous []float64 // amounts already shown, may be empty
}

// Source tells where a result came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Reasons for discarding a model answer.
const (
	ReasonNoModel    = "no_model"
	ReasonModelError = "model_error"
	ReasonEmpty      = "empty_result"
	ReasonDefault    = "default_triple"
	ReasonRepeated   = "repeated"
)

type Result struct {
	Amounts []float64
	Source  Source
	Reason  string // set when Source is SourceFallback
}

// Recommender is the remote suggestion call.
type Recommender interface {
	RecommendAmounts(ctx context.Context, req Request) ([]float64, error)
}

// RecommenderFunc adapts a function to Recommender.
type RecommenderFunc func(ctx context.Context, req Request) ([]float64, error)

func (f RecommenderFunc) RecommendAmounts(ctx context.Context, req Request) ([]float64, error) {
	return f(ctx, req)
}

// Stats counts results by source since the engine was created.
type Stats struct {
	Default  int64
	Model    int64
	Fallback int64
}

type Engine struct {
	model   Recommender
	timeout time.Duration
	logger  *log.Logger

	nDefault  atomic.Int64
	nModel    atomic.Int64
	nFallback atomic.Int64
}

type Option func(*Engine)

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.WithComponent(log.ComponentSuggest)
		}
	}
}

// NewEngine builds an engine around model. A nil model is allowed and makes
// every non-empty history go straight to the heuristic.
func NewEngine(model Recommender, opts ...Option) *Engine {
	e := &Engine{model: model, timeout: DefaultTimeout, logger: log.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Suggest never fails: every problem with the model resolves to the
// fallback heuristic, and the result always holds three positive amounts.
func (e *Engine) Suggest(ctx context.Context, req Request) Result {
	if len(req.History) == 0 {
		e.nDefault.Add(1)
		return Result{Amounts: clone(DefaultAmounts), Source: SourceDefault}
	}

	amounts, reason := e.ask(ctx, req)
	if reason == "" {
		e.nModel.Add(1)
		return Result{Amounts: amounts, Source: SourceModel}
	}

	e.nFallback.Add(1)
	e.logger.DebugContext(ctx, "Using fallback suggestions",
		log.FieldTxType, string(req.Type),
		"reason", reason)
	return Result{Amounts: Fallback(req), Source: SourceFallback, Reason: reason}
}

// Stats returns a snapshot of the per-source counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Default:  e.nDefault.Load(),
		Model:    e.nModel.Load(),
		Fallback: e.nFallback.Load(),
	}
}

// ask calls the model and applies the quality gate. A non-empty reason
// means the answer must be discarded.
func (e *Engine) ask(ctx context.Context, req Request) ([]float64, string) {
	if e.model == nil {
		return nil, ReasonNoModel
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.call(ctx, req)
	if err != nil {
		e.logger.WarnContext(ctx, "Suggestion model call failed",
			log.FieldTxType, string(req.Type),
			log.FieldError, err.Error())
		return nil, ReasonModelError
	}

	amounts := Sanitize(raw)
	switch {
	case len(amounts) == 0:
		return nil, ReasonEmpty
	case SameSet(amounts, DefaultAmounts):
		return nil, ReasonDefault
	case len(req.Previous) > 0 && SameSet(amounts, req.Previous):
		return nil, ReasonRepeated
	}
	return amounts, ""
}

func (e *Engine) call(ctx context.Context, req Request) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recommender panic: %v", r)
		}
	}()
	return e.model.RecommendAmounts(ctx, req)
}

// Sanitize drops non-finite, non-positive and duplicate values and keeps
// the first three. Fewer than three usable values yields nil.
func Sanitize(in []float64) []float64 {
	out := make([]float64, 0, 3)
	for _, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || contains(out, v) {
			continue
		}
		out = append(out, v)
		if len(out) == 3 {
			return out
		}
	}
	return nil
}

func clone(in []float64) []float64 {
	return append([]float64(nil), in...)
}
