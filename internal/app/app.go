// Package app wires configuration into a ready-to-use intake service.
// Both the daemon and the CLI build the exact same stack through here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuchiaw/oil-intake/internal/catalog"
	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/intake"
	"github.com/yuchiaw/oil-intake/internal/repository"
	"github.com/yuchiaw/oil-intake/internal/session"
	"github.com/yuchiaw/oil-intake/internal/sink"
	sheetsink "github.com/yuchiaw/oil-intake/internal/sink/sheets"
	xlsxsink "github.com/yuchiaw/oil-intake/internal/sink/xlsx"
	"github.com/yuchiaw/oil-intake/internal/vision/gemini"
)

// Build assembles the intake service from config. The returned cleanup
// closes the history database; call it on shutdown.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*intake.Service, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rowSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	db, err := repository.OpenDB(cfg.History.DSN)
	if err != nil {
		return nil, nil, common.WrapError(err, "open history db")
	}
	history := repository.NewHistoryRepository(db)

	client := gemini.NewClient(gemini.Config{
		APIKey:      cfg.Vision.APIKey,
		BaseURL:     cfg.Vision.BaseURL,
		Model:       cfg.Vision.Model,
		Temperature: cfg.Vision.Temperature,
		Timeout:     cfg.Vision.Timeout,
	}, logger)

	params := intake.Params{
		Transcriber: client,
		Session:     session.New(rowSink, logger, session.WithHistory(history)),
		Catalog:     catalog.Load(cfg.Catalog.Path, cfg.Catalog.MinSimilarity, logger),
		History:     history,
	}
	if cfg.Vision.Structured {
		params.Extractor = client
	}

	logger.Info("app.build.ok",
		"sink", cfg.Sink.Kind, "model", cfg.Vision.Model, "structured", cfg.Vision.Structured)
	return intake.NewService(logger, params), db.Close, nil
}

func buildSink(ctx context.Context, cfg *common.Config, logger *slog.Logger) (sink.RowSink, error) {
	switch cfg.Sink.Kind {
	case "sheets":
		s, err := sheetsink.New(ctx, cfg.Sink.SpreadsheetID, cfg.Sink.SheetRange, cfg.Sink.CredentialsFile, logger)
		if err != nil {
			return nil, common.WrapError(err, "build sheets sink")
		}
		return s, nil
	case "xlsx":
		return xlsxsink.New(cfg.Sink.WorkbookPath, cfg.Sink.SheetName, logger), nil
	}
	return nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
}
