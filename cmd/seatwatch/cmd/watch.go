package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"seatwatch/internal/config"
	"seatwatch/internal/engine"
	"seatwatch/internal/notify"
	"seatwatch/internal/studentapi"
	"seatwatch/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll tracked sections and push notifications on openings",
	RunE:  runWatch,
}

var (
	flagCourses     []string
	flagIDs         []string
	flagInterval    time.Duration
	flagMinRenotify time.Duration
	flagTopic       string
	flagNtfyURL     string
	flagTerm        string
	flagLogLevel    string
	flagMetrics     bool
	flagDryRun      bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringArrayVar(&flagCourses, "courses", nil,
		"course specs like COS333:L01,P01 or COS333 (all sections)")
	watchCmd.Flags().StringArrayVar(&flagIDs, "ids", nil,
		"pre-resolved specs like 002054:21931,21927 (courseID:classIDs)")
	watchCmd.Flags().DurationVar(&flagInterval, "interval", 0,
		"polling interval (default 30s)")
	watchCmd.Flags().DurationVar(&flagMinRenotify, "min-renotify", 0,
		"minimum interval before repeating an unchanged notification (default 2m)")
	watchCmd.Flags().StringVar(&flagTopic, "topic", "", "ntfy topic")
	watchCmd.Flags().StringVar(&flagNtfyURL, "ntfy-url", "", "ntfy base URL")
	watchCmd.Flags().StringVar(&flagTerm, "term", "", "term code (default: latest)")
	watchCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	watchCmd.Flags().BoolVar(&flagMetrics, "metrics", false, "serve /healthz and /metrics")
	watchCmd.Flags().BoolVar(&flagDryRun, "dry-run", false,
		"log openings instead of pushing them (no topic required)")
}

// loadConfig builds the effective configuration: config file (optional),
// then documented environment variables, then flags.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	overlay(&cfg.API.ConsumerKey, viper.GetString("api.consumer_key"))
	overlay(&cfg.API.ConsumerSecret, viper.GetString("api.consumer_secret"))
	overlay(&cfg.API.Term, viper.GetString("api.term"))
	overlay(&cfg.Ntfy.Topic, viper.GetString("ntfy.topic"))
	overlay(&cfg.Ntfy.BaseURL, viper.GetString("ntfy.base_url"))

	overlay(&cfg.Ntfy.Topic, flagTopic)
	overlay(&cfg.Ntfy.BaseURL, flagNtfyURL)
	overlay(&cfg.API.Term, flagTerm)
	overlay(&cfg.Logging.Level, flagLogLevel)
	if flagInterval > 0 {
		cfg.Poll.Interval = flagInterval
	}
	if flagMinRenotify > 0 {
		cfg.Poll.MinRenotify = flagMinRenotify
	}
	if flagMetrics {
		cfg.Server.Enabled = true
	}
	if flagDryRun {
		cfg.DryRun = true
	}

	return cfg, nil
}

// overlay sets dst when the candidate value is non-empty. Later calls win.
func overlay(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

// specArgs merges --courses/--ids with the COURSE_SPECS/ID_SPECS env
// fallbacks (space-separated, as the original deployment used).
func specArgs() []string {
	courses := flagCourses
	if len(courses) == 0 {
		courses = strings.Fields(viper.GetString("specs.courses"))
	}
	ids := flagIDs
	if len(ids) == 0 {
		ids = strings.Fields(viper.GetString("specs.ids"))
	}
	return append(courses, ids...)
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           parseLogLevel(cfg.Logging.Level),
		ReportTimestamp: true,
	})
	slogger := slog.New(logger)

	tokens := studentapi.NewOAuthTokenProvider(
		cfg.API.ConsumerKey,
		cfg.API.ConsumerSecret,
		studentapi.WithTokenURL(cfg.API.TokenURL),
	)
	limiter := studentapi.NewRateLimiter(
		cfg.API.RateLimit.PerSecond,
		cfg.API.RateLimit.Burst,
		cfg.API.RateLimit.DailyLimit,
	)
	api := studentapi.NewAppClient(
		tokens,
		studentapi.WithBaseURL(cfg.API.BaseURL),
		studentapi.WithRateLimiter(limiter),
	)

	ctx := context.Background()
	resolver := watch.NewResolver(api, slogger)

	term := cfg.API.Term
	if term == "" {
		term, err = resolver.LatestTerm(ctx)
		if err != nil {
			return fmt.Errorf("detecting current term: %w", err)
		}
		logger.Info("detected current term", "term", term)
	}

	sections, err := resolveAll(ctx, resolver, term, logger)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.NewNtfyNotifier(cfg.Ntfy.BaseURL, cfg.Ntfy.Topic)
	if cfg.DryRun {
		logger.Info("dry run: openings will be logged, not pushed")
		notifier = notify.NewNoOpNotifier(slogger)
	}
	gate := engine.NewGate(cfg.Poll.MinRenotify)
	eng := engine.New(api, notifier, gate, term, sections, engine.WithLogger(slogger))

	logger.Info("starting watcher",
		"term", term,
		"sections", len(sections),
		"interval", cfg.Poll.Interval,
		"min_renotify", cfg.Poll.MinRenotify,
	)
	if err := eng.AnnounceStart(ctx); err != nil {
		logger.Warn("startup notification failed", "error", err)
	}

	sched, err := engine.NewScheduler(eng, cfg.Poll.Interval, slogger)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	var srv *echo.Echo
	if cfg.Server.Enabled {
		srv = newMetricsServer()
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("serving metrics", "addr", addr)
		go func() {
			if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down watcher")
	<-sched.Stop().Done()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down metrics server: %w", err)
		}
	}

	logger.Info("watcher stopped")
	return nil
}

// resolveAll resolves every spec, logging per-entry failures. It errors only
// when no spec at all survives resolution.
func resolveAll(
	ctx context.Context,
	resolver *watch.Resolver,
	term string,
	logger *log.Logger,
) ([]watch.Section, error) {
	specs, err := watch.ParseSpecs(specArgs())
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("provide at least one course spec via --courses or --ids")
	}

	var sections []watch.Section
	for _, spec := range specs {
		resolved, err := resolver.Resolve(ctx, term, spec)
		if err != nil {
			logger.Error("course resolution failed", "spec", spec.String(), "error", err)
			continue
		}
		sections = append(sections, resolved...)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("no course spec could be resolved for term %s", term)
	}
	return sections, nil
}

func newMetricsServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
