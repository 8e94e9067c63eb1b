// Command leaderboard prints standings and head-to-head history from a league
// database, or serves them read-only over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/league/internal/adapters/http/api"
	"github.com/okian/league/internal/adapters/repository"
	"github.com/okian/league/internal/config"
	"github.com/okian/league/internal/domain/rating"
	"github.com/okian/league/internal/report"
	"github.com/okian/league/pkg/logger"
)

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logger.Get().Error(ctx, "leaderboard failed", logger.Error(err))
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop already called
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
	db := fs.String("db", "", "SQLite database path")
	history := fs.String("history", "", "print head-to-head results for this competitor")
	limit := fs.Int("limit", 0, "print only the top N standings")
	serve := fs.Bool("serve", false, "serve the read-only HTTP API instead of printing")
	addr := fs.String("addr", "", "listen address for -serve")
	if err := fs.Parse(args); err != nil {
		return err
	}

	overrides := map[string]any{}
	if *db != "" {
		overrides["db_path"] = *db
	}
	if *addr != "" {
		overrides["addr"] = *addr
	}
	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	reg, err := repository.OpenSQLite(ctx, cfg.DBPath, repository.WithLogger(log.Named("registry")))
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	model, err := rating.New(
		rating.WithMu(cfg.RatingMu),
		rating.WithSigma(cfg.RatingSigma),
		rating.WithBeta(cfg.RatingBeta),
		rating.WithTau(cfg.RatingTau),
		rating.WithDrawProbability(cfg.DrawProbability),
	)
	if err != nil {
		return err
	}
	reporter := report.New(reg, report.WithModel(model), report.WithLogger(log.Named("report")))

	switch {
	case *serve:
		return serveAPI(ctx, cfg, reporter, log)
	case *history != "":
		rows, err := reporter.MatchHistory(ctx, *history)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, report.RenderHistory(*history, rows))
		return nil
	default:
		var standings []report.Standing
		if *limit > 0 {
			standings, err = reporter.Top(ctx, *limit)
		} else {
			standings, err = reporter.Leaderboard(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, report.RenderLeaderboard(standings))
		return nil
	}
}

func serveAPI(ctx context.Context, cfg *config.Config, reporter *report.Reporter, log logger.Logger) error {
	mux := http.NewServeMux()
	api.NewServer(reporter,
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
