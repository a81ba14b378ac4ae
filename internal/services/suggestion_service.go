package services

import (
	"context"
	"errors"
	"sort"

	"zenbank/internal/core"
	"zenbank/internal/log"
	"zenbank/internal/suggest"
)

// HistoryDepth is how many recent amounts feed the engine.
const HistoryDepth = 3

// SourceStatic marks the last-resort list used when no request could be built.
const SourceStatic suggest.Source = "static"

// StaticAmounts is returned when the engine cannot be consulted at all.
var StaticAmounts = []float64{20, 50, 100}

// SequenceGuard numbers suggestion requests so that only the newest one
// commits. *session.Session implements it.
type SequenceGuard interface {
	BeginSuggestion(t core.TransactionType) uint64
	CommitSuggestion(t core.TransactionType, seq uint64, commit func()) bool
}

// Suggestion is what the caller shows, amounts ascending.
type Suggestion struct {
	Amounts []float64
	Source  suggest.Source
	Reason  string
	Seq     uint64
	// Stale is set when a newer request started while this one ran.
	Stale bool
}

type SuggestionService struct {
	accounts *AccountService
	engine   *suggest.Engine
	shown    *suggest.ShownStore
	logger   *log.Logger
}

// NewSuggestionService wires the engine caller. shown may be nil.
func NewSuggestionService(accounts *AccountService, engine *suggest.Engine, shown *suggest.ShownStore, logger *log.Logger) *SuggestionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &SuggestionService{
		accounts: accounts,
		engine:   engine,
		shown:    shown,
		logger:   logger.WithComponent(log.ComponentSuggest),
	}
}

// Suggest returns three amounts for userID and t. guard may be nil, in which
// case every result commits. Only an invalid type or an unknown user is an
// error; every other failure degrades to a fallback list.
func (s *SuggestionService) Suggest(ctx context.Context, userID string, t core.TransactionType, guard SequenceGuard) (out Suggestion, err error) {
	if err := t.Validate(); err != nil {
		return Suggestion{}, err
	}
	var seq uint64
	if guard != nil {
		seq = guard.BeginSuggestion(t)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Suggestion panicked, using static list",
				"panic", r,
				log.FieldUserID, userID,
				log.FieldTxType, string(t))
			out, err = s.static(t, seq, guard), nil
		}
	}()

	history, err := s.accounts.RecentAmounts(ctx, userID, t, HistoryDepth)
	if errors.Is(err, core.ErrUserNotFound) {
		return Suggestion{}, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read history, using static list",
			log.FieldError, err,
			log.FieldUserID, userID)
		return s.static(t, seq, guard), nil
	}

	var previous []float64
	if s.shown != nil {
		previous, err = s.shown.Previous(ctx, userID, t)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to read shown suggestions",
				log.FieldError, err,
				log.FieldUserID, userID)
			previous = nil
		}
	}

	res := s.engine.Suggest(ctx, suggest.Request{History: history, Type: t, Previous: previous})
	amounts := append([]float64(nil), res.Amounts...)
	sort.Float64s(amounts)

	out = Suggestion{Amounts: amounts, Source: res.Source, Reason: res.Reason, Seq: seq}
	remember := func() {
		if s.shown == nil {
			return
		}
		if err := s.shown.Remember(ctx, userID, t, amounts); err != nil {
			s.logger.WarnContext(ctx, "Failed to remember shown suggestions",
				log.FieldError, err,
				log.FieldUserID, userID)
		}
	}
	if guard == nil {
		remember()
	} else {
		out.Stale = !guard.CommitSuggestion(t, seq, remember)
	}

	s.logger.InfoContext(ctx, "Suggestions computed",
		log.FieldOperation, log.OpSuggest,
		log.FieldUserID, userID,
		log.FieldTxType, string(t),
		log.FieldSource, string(res.Source),
		log.FieldSequence, seq,
		"stale", out.Stale)
	return out, nil
}

func (s *SuggestionService) static(t core.TransactionType, seq uint64, guard SequenceGuard) Suggestion {
	out := Suggestion{Amounts: append([]float64(nil), StaticAmounts...), Source: SourceStatic, Seq: seq}
	if guard != nil {
		out.Stale = !guard.CommitSuggestion(t, seq, nil)
	}
	return out
}

// EngineStats exposes the engine counters for metrics.
func (s *SuggestionService) EngineStats() suggest.Stats {
	return s.engine.Stats()
}
