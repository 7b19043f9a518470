package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/yungbote/mockgrader/internal/clients/redis"
	"github.com/yungbote/mockgrader/internal/data/db"
	"github.com/yungbote/mockgrader/internal/data/repos"
	aggregate "github.com/yungbote/mockgrader/internal/jobs/pipeline/aggregate_attempts"
	finalize "github.com/yungbote/mockgrader/internal/jobs/pipeline/finalize_attempts"
	score "github.com/yungbote/mockgrader/internal/jobs/pipeline/score_answers"
	jobrt "github.com/yungbote/mockgrader/internal/jobs/runtime"
	"github.com/yungbote/mockgrader/internal/modules/grading"
	"github.com/yungbote/mockgrader/internal/observability"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    repos.Set
	Clients  *Clients
	Registry *jobrt.Registry

	pg           *db.PostgresService
	locker       redis.Locker
	otelShutdown func(context.Context) error
}

var newLocker = redis.NewLockerFromEnv

// New connects everything cfg.Job needs. On error, whatever was opened is
// closed again.
func New(ctx context.Context, log *logger.Logger, cfg Config) (_ *App, err error) {
	a := &App{Log: log, Cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "mockgrader-" + cfg.Job,
		Environment: cfg.Environment,
	})
	observability.Init(log)

	pg, err := db.NewPostgresService(log, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pg = pg
	if cfg.AutoMigrate {
		if err := pg.AutoMigrateAll(); err != nil {
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	a.DB = pg.DB()
	a.Repos = repos.NewSet(a.DB, log)

	a.Clients = &Clients{}
	switch cfg.Job {
	case score.JobType:
		if err := wireScoringClients(ctx, log, cfg, a.Clients); err != nil {
			return nil, err
		}
	case finalize.JobType:
		if err := wireNotificationClients(log, cfg, a.Clients); err != nil {
			return nil, err
		}
	}

	if cfg.RedisAddr != "" {
		l, err := newLocker(log)
		if err != nil {
			return nil, fmt.Errorf("init redis lease: %w", err)
		}
		a.locker = l
	}

	a.Registry, err = buildRegistry(a.deps())
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) deps() grading.UsecasesDeps {
	return grading.UsecasesDeps{
		Log:         a.Log,
		Tx:          db.NewGormTxRunner(a.DB),
		Answers:     a.Repos.Answers,
		Attempts:    a.Repos.Attempts,
		Questions:   a.Repos.Questions,
		Blobs:       a.Clients.Blobs,
		Transcriber: a.Clients.Transcriber,
		Grader:      a.Clients.Grader,
		Identity:    a.Clients.Identity,
		Mailer:      a.Clients.Mailer,
		Scoring: grading.ScoringOptions{
			StoragePrefix: a.Cfg.StoragePrefix,
			DownloadsDir:  a.Cfg.DownloadsDir,
			DeleteAudio:   a.Cfg.DeleteAudio,
		},
		Email: grading.EmailOptions{
			ResultsBaseURL: a.Cfg.ResultsBaseURL,
			BrandName:      a.Cfg.BrandName,
			SupportEmail:   a.Cfg.SupportEmail,
			LogoURL:        a.Cfg.LogoURL,
		},
	}
}

func buildRegistry(deps grading.UsecasesDeps) (*jobrt.Registry, error) {
	reg := jobrt.NewRegistry()
	for _, h := range []jobrt.Handler{
		score.New(deps),
		finalize.New(deps),
		aggregate.New(deps),
	} {
		if err := reg.Register(h); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Run executes the configured job once. A lease held by another run returns
// redis.ErrLeaseHeld without touching any rows.
func (a *App) Run(ctx context.Context, opts jobrt.Options) error {
	jc := jobrt.NewContext(ctx, a.Cfg.Job, a.Log, opts)

	if a.locker != nil {
		lease, err := a.locker.Acquire(jc.Ctx, a.Cfg.Job, a.Cfg.LeaseTTL)
		if err != nil {
			return err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				jc.Log.Warn("run lease release failed", "error", err)
			}
		}()
	}

	jc.Log.Info("run starting", "limit", opts.Limit, "dry_run", opts.DryRun)
	runErr := jobrt.Execute(a.Registry, jc)

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.Current().Push(pushCtx, a.Cfg.PushgatewayURL, a.Cfg.Job, jc.RunID.String()); err != nil {
		jc.Log.Warn("metrics push failed", "error", err)
	}
	return runErr
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close(a.Log)
	if a.locker != nil {
		if err := a.locker.Close(); err != nil {
			a.Log.Warn("redis close failed", "error", err)
		}
		a.locker = nil
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("postgres close failed", "error", err)
		}
		a.pg = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		a.otelShutdown = nil
	}
}

// exitCode maps a run's outcome to the process status. Row-level failures
// never reach here; an interrupted run or a held lease is a clean exit.
func exitCode(log *logger.Logger, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		log.Info("run interrupted, remaining rows are left for the next run")
		return 0
	case errors.Is(err, redis.ErrLeaseHeld):
		log.Info("another run holds the lease, nothing to do")
		return 0
	default:
		log.Error("run failed", "error", err)
		return 1
	}
}

func loadDotEnv() error {
	path := os.Getenv("DOTENV_PATH")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// RunJob is the whole life of one batch process: flags, environment, wiring,
// a single pass of jobType and teardown. It returns the process exit status.
func RunJob(jobType string, args []string) int {
	flags := flag.NewFlagSet(jobType, flag.ContinueOnError)
	dryRun := flags.Bool("dry-run", false, "read and report without provider calls or writes")
	limit := flags.Int("limit", -1, "max rows to process (0 = unlimited, default JOB_BATCH_LIMIT)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	envErr := loadDotEnv()
	log, err := logger.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	if envErr != nil {
		log.Warn("dotenv not loaded", "error", envErr)
	}

	cfg, err := LoadConfig(jobType)
	if err != nil {
		log.Error("invalid configuration", "job", jobType, "error", err)
		return 1
	}
	if *limit < 0 {
		*limit = cfg.BatchLimit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, log, cfg)
	if err != nil {
		log.Error("startup failed", "job", jobType, "error", err)
		return 1
	}
	defer a.Close()

	return exitCode(log, a.Run(ctx, jobrt.Options{Limit: *limit, DryRun: *dryRun}))
}
