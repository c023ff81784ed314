package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"seatwatch/internal/studentapi"
	"seatwatch/internal/watch"
)

// resolveCmd is a one-shot resolution check: it maps course specs to
// registrar identifiers and prints them without entering the poll loop.
var resolveCmd = &cobra.Command{
	Use:   "resolve [spec ...]",
	Short: "Resolve course specs to registrar class IDs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&flagTerm, "term", "", "term code (default: latest)")
}

func runResolve(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.API.ConsumerKey == "" || cfg.API.ConsumerSecret == "" {
		return fmt.Errorf("CONSUMER_KEY and CONSUMER_SECRET are required")
	}

	specs, err := watch.ParseSpecs(args)
	if err != nil {
		return err
	}

	tokens := studentapi.NewOAuthTokenProvider(
		cfg.API.ConsumerKey,
		cfg.API.ConsumerSecret,
		studentapi.WithTokenURL(cfg.API.TokenURL),
	)
	api := studentapi.NewAppClient(tokens, studentapi.WithBaseURL(cfg.API.BaseURL))

	ctx := context.Background()
	resolver := watch.NewResolver(api, slog.New(slog.NewTextHandler(io.Discard, nil)))

	term := cfg.API.Term
	if term == "" {
		term, err = resolver.LatestTerm(ctx)
		if err != nil {
			return fmt.Errorf("detecting current term: %w", err)
		}
	}
	fmt.Printf("Term %s\n", term)

	var failed int
	for _, spec := range specs {
		sections, err := resolver.Resolve(ctx, term, spec)
		if err != nil {
			failed++
			fmt.Printf("  %s: %v\n", spec.String(), err)
			continue
		}
		for _, sec := range sections {
			label := sec.Label
			if label == "" {
				label = "-"
			}
			fmt.Printf("  %s %s  course %s  class %s\n",
				sec.Display, label, sec.CourseID, sec.ClassID)
		}
	}

	if failed == len(specs) {
		return fmt.Errorf("no spec resolved")
	}
	return nil
}
