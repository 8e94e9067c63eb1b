// Command league enters competitors into the league, plays the scheduled
// tournament on the local simulator and prints the resulting leaderboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/league/internal/adapters/policy"
	"github.com/okian/league/internal/adapters/repository"
	"github.com/okian/league/internal/adapters/simulator/local"
	service "github.com/okian/league/internal/app"
	"github.com/okian/league/internal/config"
	"github.com/okian/league/internal/domain/rating"
	"github.com/okian/league/internal/domain/schedule"
	"github.com/okian/league/internal/report"
	"github.com/okian/league/pkg/logger"
	"github.com/okian/league/pkg/metrics"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logger.Get().Error(ctx, "league run failed", logger.Error(err))
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop already called
	}
}

// flagKeys maps flag names to config keys when they differ.
var flagKeys = map[string]string{ //nolint:gochecknoglobals // static lookup
	"db": "db_path",
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("league", flag.ContinueOnError)
	competitors := fs.String("competitors", "", "comma separated competitor identifiers; checkpoints end in the checkpoint suffix")
	fs.Int("num-matches", 0, "games per pair; each direction plays half")
	fs.Bool("partial-obs", false, "hide the opponent's moves from observations")
	fs.String("db", "", "SQLite database path")
	fs.Int64("seed", 0, "seed for pairing order, bots and policies (0 = time based)")
	fs.Int("sample-size", 0, "incumbents each newcomer meets once the league has history")
	fs.Int("num-envs", 0, "parallel games per batch")
	fs.Int("rounds-per-game", 0, "rounds in one local duel")
	fs.String("metrics-textfile", "", "write Prometheus metrics here after the run")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.Bool("dry-run", false, "play against an in-memory copy of the database; nothing is written")
	if err := fs.Parse(args); err != nil {
		return err
	}

	overrides := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if f.Name == "competitors" {
			overrides[key] = config.SplitList(*competitors)
			return
		}
		overrides[key] = f.Value.(flag.Getter).Get()
	})
	if rest := fs.Args(); len(rest) > 0 {
		overrides["competitors"] = rest
	}

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.MetricsTextfile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
				log.Warn(ctx, "metrics textfile not written", logger.String("path", cfg.MetricsTextfile), logger.Error(err))
			}
		}()
	}

	reg, err := openRegistry(ctx, cfg, log.Named("registry"))
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

	league, err := service.New(reg, model,
		local.NewFactory(local.WithLogger(log.Named("simulator"))),
		policy.NewFileLoader(policy.WithSeed(cfg.Seed), policy.WithLogger(log.Named("policy"))),
		service.WithLogger(log.Named("league")),
		service.WithScheduler(schedule.New(schedule.WithSeed(cfg.Seed), schedule.WithSampleSize(cfg.SampleSize))),
		service.WithNumMatches(cfg.NumMatches),
		service.WithNumEnvs(cfg.NumEnvs),
		service.WithRoundsPerGame(cfg.RoundsPerGame),
		service.WithPartialObs(cfg.PartialObs),
		service.WithSeed(cfg.Seed),
		service.WithCheckpointSuffix(cfg.CheckpointSuffix),
	)
	if err != nil {
		return err
	}

	summary, err := league.Run(ctx, cfg.Competitors)
	if err != nil {
		return err
	}

	standings, err := report.New(reg, report.WithModel(model)).Leaderboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run %s: %d fixtures, %d games in %s\n",
		summary.RunID, summary.Played, summary.Games, summary.Duration.Round(time.Millisecond))
	if cfg.DryRun {
		fmt.Fprintf(stdout, "dry run: %s left unchanged\n", cfg.DBPath)
	}
	fmt.Fprintln(stdout, report.RenderLeaderboard(standings))
	return nil
}

// openRegistry opens the league database. A dry run copies it into memory,
// or starts empty when the file does not exist yet.
func openRegistry(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Registry, error) {
	if !cfg.DryRun {
		return repository.OpenSQLite(ctx, cfg.DBPath, repository.WithLogger(log))
	}
	if _, err := os.Stat(cfg.DBPath); errors.Is(err, os.ErrNotExist) {
		return repository.NewTreapStore(repository.WithLogger(log)), nil
	}
	src, err := repository.OpenSQLite(ctx, cfg.DBPath, repository.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return repository.Snapshot(ctx, src, repository.WithLogger(log))
}
