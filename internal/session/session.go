// Package session owns the single in-flight draft record and its
// lifecycle: extraction results and user edits mutate the draft, a
// confirm appends it to the sink with a generated timestamp and resets
// it, and every failure leaves the draft exactly as it was so nothing
// has to be re-keyed.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yuchiaw/oil-intake/constants"
	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/entity"
	"github.com/yuchiaw/oil-intake/internal/repository"
	"github.com/yuchiaw/oil-intake/internal/sink"
)

// Session holds one draft at a time. The workflow is single-user, but
// the draft is reachable from HTTP handlers, so access is serialized
// with a mutex rather than trusting the client to never overlap calls.
type Session struct {
	mu      sync.Mutex
	draft   entity.LabelRecord
	sink    sink.RowSink
	history repository.HistoryRepository
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes a Session.
type Option func(*Session)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithHistory records confirmed rows in the local history store.
// History failures are logged, not surfaced: once the sink accepted the
// row the intake succeeded.
func WithHistory(h repository.HistoryRepository) Option {
	return func(s *Session) { s.history = h }
}

func New(rowSink sink.RowSink, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		sink:   rowSink,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() entity.LabelRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Reset clears every field, preparing for the next photograph.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = entity.LabelRecord{}
	s.logger.Debug("session.reset")
}

// ApplyExtraction merges normalizer output into the draft field by
// field. An empty candidate leaves the existing value alone, so a
// second photograph's sparse results never erase what the first one
// found.
func (s *Session) ApplyExtraction(candidates entity.FieldCandidates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := 0
	for _, field := range constants.RowFields {
		if v, ok := candidates[field]; ok && v != "" {
			s.draft.SetField(field, v)
			applied++
		}
	}
	s.logger.Info("session.apply_extraction", "candidates", len(candidates), "applied", applied)
}

// EditField is a direct user override; it always wins over extraction
// output and accepts any value, including empty.
func (s *Session) EditField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draft.SetField(name, value) {
		return common.NewAppError("UNKNOWN_FIELD", "no such field: "+name, common.ErrInvalidInput)
	}
	s.logger.Debug("session.edit_field", "field", name, "len", len(value))
	return nil
}

// Confirm appends the draft plus a freshly generated timestamp to the
// sink, then resets the draft. Preconditions and failure behavior:
//
//   - an empty name fails validation before any sink call
//   - on sink failure the draft is preserved unchanged for retry
//   - the draft resets only after the sink confirms the append
//
// Returns the appended row on success.
func (s *Session) Confirm(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.Name == "" {
		s.logger.Warn("session.confirm.rejected", "reason", "empty name")
		return nil, common.NewAppError("EMPTY_NAME", "name is required before confirming", common.ErrValidation)
	}

	at := s.now()
	row := s.draft.Row(at)
	if err := s.sink.Append(ctx, row); err != nil {
		s.logger.Error("session.confirm.sink_error", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrSink, err)
	}

	if s.history != nil {
		rec := entity.Intake{
			Name:      s.draft.Name,
			Price:     s.draft.Price,
			Volume:    s.draft.Volume,
			Expiry:    s.draft.Expiry,
			BatchCode: s.draft.BatchCode,
			CreatedAt: at,
		}
		if err := s.history.Record(ctx, rec); err != nil {
			// sink row is the source of truth; history is best effort
			s.logger.Warn("session.confirm.history_error", "error", err)
		}
	}

	s.logger.Info("session.confirm.ok", "name", s.draft.Name, "at", at.Format(constants.TimestampLayout))
	s.draft = entity.LabelRecord{}
	return row, nil
}
