// Package intake orchestrates one user action at a time: run extraction
// over uploaded photos, expose the draft for review, and confirm it to
// the sink. It is the only caller of the vision collaborator.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuchiaw/oil-intake/internal/catalog"
	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/entity"
	"github.com/yuchiaw/oil-intake/internal/extract"
	"github.com/yuchiaw/oil-intake/internal/repository"
	"github.com/yuchiaw/oil-intake/internal/session"
	"github.com/yuchiaw/oil-intake/internal/vision"
)

// CandidateExtractor is the structured-output path of the vision
// collaborator. Optional: when absent (or failing) the service falls
// back to plain transcription plus the text normalizer.
type CandidateExtractor interface {
	ExtractCandidates(ctx context.Context, region string, images []vision.Image) (entity.FieldCandidates, []byte, error)
}

// Service wires the extraction pipeline to the session.
type Service struct {
	logger      *slog.Logger
	transcriber vision.Transcriber
	extractor   CandidateExtractor
	normalizer  *extract.Normalizer
	session     *session.Session
	catalog     *catalog.Catalog
	history     repository.HistoryRepository
}

// Params collects the service's collaborators. Transcriber and Session
// are required; the rest degrade gracefully when nil.
type Params struct {
	Transcriber vision.Transcriber
	Extractor   CandidateExtractor
	Session     *session.Session
	Catalog     *catalog.Catalog
	History     repository.HistoryRepository
}

func NewService(logger *slog.Logger, p Params) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:      logger,
		transcriber: p.Transcriber,
		extractor:   p.Extractor,
		normalizer:  extract.NewNormalizer(logger),
		session:     p.Session,
		catalog:     p.Catalog,
		history:     p.History,
	}
}

// ExtractRegion runs the vision model over one region's photos,
// normalizes the reply, and merges the candidates into the draft.
// A vision failure leaves the draft untouched and is returned for the
// user to see; a reply with no recognizable fields is not an error,
// just an all-empty candidate set.
func (s *Service) ExtractRegion(ctx context.Context, region string, images []vision.Image) (entity.FieldCandidates, error) {
	start := time.Now()

	if s.extractor != nil {
		candidates, _, err := s.extractor.ExtractCandidates(ctx, region, images)
		if err == nil {
			s.session.ApplyExtraction(candidates)
			s.logger.Info("intake.extract.ok",
				"region", region, "path", "structured",
				"elapsed_ms", time.Since(start).Milliseconds())
			return candidates, nil
		}
		s.logger.Warn("intake.extract.structured_fallback", "region", region, "error", err)
	}

	text, err := s.transcriber.Transcribe(ctx, vision.TranscribeRequest{
		Region:      region,
		Instruction: vision.BuildInstruction(region),
		Images:      images,
	})
	if err != nil {
		s.logger.Error("intake.extract.vision_error", "region", region, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrVision, err)
	}

	candidates := s.normalizer.Normalize(region, text)
	s.session.ApplyExtraction(candidates)
	s.logger.Info("intake.extract.ok",
		"region", region, "path", "transcribe",
		"elapsed_ms", time.Since(start).Milliseconds())
	return candidates, nil
}

// Draft returns a copy of the current draft record.
func (s *Service) Draft() entity.LabelRecord {
	return s.session.Draft()
}

// EditField applies a direct user override to the draft.
func (s *Service) EditField(name, value string) error {
	return s.session.EditField(name, value)
}

// ResetDraft discards the current draft.
func (s *Service) ResetDraft() {
	s.session.Reset()
}

// Confirm appends the draft to the sink and returns the appended row.
func (s *Service) Confirm(ctx context.Context) ([]string, error) {
	return s.session.Confirm(ctx)
}

// Suggest returns catalog names similar to the given one. Advisory
// only; nothing here writes to the draft.
func (s *Service) Suggest(name string, limit int) []catalog.Suggestion {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Suggest(name, limit)
}

// History lists recently confirmed intakes from the local audit log.
func (s *Service) History(ctx context.Context, limit int) ([]entity.Intake, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListRecent(ctx, limit)
}
