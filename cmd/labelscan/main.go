// Command labelscan is the terminal companion to intaked: one-shot
// extraction from photo files, confirm, and history listing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yuchiaw/oil-intake/constants"
	"github.com/yuchiaw/oil-intake/internal/app"
	"github.com/yuchiaw/oil-intake/internal/common"
	"github.com/yuchiaw/oil-intake/internal/intake"
	"github.com/yuchiaw/oil-intake/internal/server"
	"github.com/yuchiaw/oil-intake/internal/vision"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "labelscan",
		Short:         "Essential-oil label intake from phone photos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newScanCmd(), newHistoryCmd())
	return root
}

func buildService(ctx context.Context) (*intake.Service, func() error, *common.Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	svc, cleanup, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return svc, cleanup, cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the intake JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, cfg, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()
			return server.New(svc, slog.Default()).Start(ctx, cfg.Server.Addr)
		},
	}
}

func newScanCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "scan <front-photo> [side-photo]",
		Short: "Extract label fields from photo files",
		Long: "Runs the vision model over a front-of-label photo (name, price, volume)\n" +
			"and optionally a side-of-label photo (sell-by date, batch code), then\n" +
			"prints the draft. With --confirm the draft is appended to the sink.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, _, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			regions := []string{constants.RegionFront, constants.RegionSide}
			for i, path := range args {
				img, err := loadImage(path)
				if err != nil {
					return err
				}
				if _, err := svc.ExtractRegion(ctx, regions[i], []vision.Image{img}); err != nil {
					return err
				}
			}

			draft := svc.Draft()
			for _, field := range constants.RowFields {
				v, _ := draft.Field(field)
				fmt.Printf("%-12s %s\n", field+":", v)
			}
			for _, s := range svc.Suggest(draft.Name, 3) {
				fmt.Printf("suggestion:  %s (%.2f)\n", s.Name, s.Similarity)
			}

			if !confirm {
				return nil
			}
			row, err := svc.Confirm(ctx)
			if err != nil {
				return err
			}
			fmt.Println("appended:", row)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "append the extracted record to the sink")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently confirmed intakes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, cleanup, _, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			recs, err := svc.History(ctx, limit)
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Printf("%s  %-20s %6s  %4sml  %s  %s\n",
					r.CreatedAt.Format(constants.TimestampLayout),
					r.Name, r.Price, r.Volume, r.Expiry, r.BatchCode)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of intakes to show")
	return cmd
}

func loadImage(path string) (vision.Image, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return vision.Image{}, fmt.Errorf("unsupported image type %q (want jpg/jpeg/png/webp)", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return vision.Image{}, err
	}
	return vision.Image{Data: data, MIMEType: constants.MIMEForExt(ext)}, nil
}
