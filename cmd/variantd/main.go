package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/variantdl/variantdl/internal/api"
	"github.com/variantdl/variantdl/internal/broadcast"
	"github.com/variantdl/variantdl/internal/server"
	"github.com/variantdl/variantdl/internal/store"
	"github.com/variantdl/variantdl/internal/sweeper"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

var version = "dev"

var (
	addr         string
	dbPath       string
	contentDir   string
	limit        int
	pollInterval time.Duration
	chunkSize    int
	maxAttempts  int
	tieBreak     string
	sweepCron    string

	daemonFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "addr, a",
			Usage:       "address to serve the rpc and websocket endpoints on",
			EnvVar:      "VARIANTD_ADDR",
			Value:       "127.0.0.1:4320",
			Destination: &addr,
		},
		cli.StringFlag{
			Name:        "db",
			Usage:       "path to the sqlite catalog database",
			EnvVar:      "VARIANTD_DB",
			Value:       "variantd.db",
			Destination: &dbPath,
		},
		cli.StringFlag{
			Name:        "content-dir, c",
			Usage:       "directory holding variant payload files",
			EnvVar:      "VARIANTD_CONTENT_DIR",
			Value:       ".",
			Destination: &contentDir,
		},
		cli.IntFlag{
			Name:        "limit, l",
			Usage:       "maximum number of concurrently running downloads",
			EnvVar:      "VARIANTD_LIMIT",
			Value:       4,
			Destination: &limit,
		},
		cli.DurationFlag{
			Name:        "poll-interval",
			Usage:       "scheduler control-loop tick period",
			EnvVar:      "VARIANTD_POLL_INTERVAL",
			Value:       variantlib.DefPollInterval,
			Destination: &pollInterval,
		},
		cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "transfer chunk size in bytes",
			EnvVar:      "VARIANTD_CHUNK_SIZE",
			Value:       variantlib.DefChunkSize,
			Destination: &chunkSize,
		},
		cli.IntFlag{
			Name:        "max-attempts",
			Usage:       "total attempts before a download fails permanently",
			EnvVar:      "VARIANTD_MAX_ATTEMPTS",
			Value:       variantlib.DefMaxAttempts,
			Destination: &maxAttempts,
		},
		cli.StringFlag{
			Name:        "tie-break",
			Usage:       "tie-break policy for equal scores (quality or random)",
			EnvVar:      "VARIANTD_TIE_BREAK",
			Value:       string(variantlib.TieBreakQuality),
			Destination: &tieBreak,
		},
		cli.StringFlag{
			Name:        "sweep-cron",
			Usage:       "cron expression for the job retention sweep",
			EnvVar:      "VARIANTD_SWEEP_CRON",
			Value:       "*/5 * * * *",
			Destination: &sweepCron,
		},
	}
)

func main() {
	// Missing .env is fine; flags and real env still apply.
	_ = godotenv.Load()
	app := cli.App{
		Name:    "variantd",
		Usage:   "adaptive content delivery daemon",
		Version: version,
		Flags:   daemonFlags,
		Action:  run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Println("variantd:", err.Error())
		os.Exit(1)
	}
}

func run(_ *cli.Context) error {
	l := log.New(os.Stderr, "variantd ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	graph, err := st.LoadDependencies(ctx)
	if err != nil {
		st.Close()
		return fmt.Errorf("loading dependencies: %w", err)
	}

	jobs := variantlib.NewJobStore()
	bc := broadcast.New(ctx, l)
	fs := afero.NewOsFs()

	retry := variantlib.DefaultRetryConfig()
	retry.MaxAttempts = maxAttempts

	// The scheduler does not exist yet when the executor's handlers are
	// built, so the requeue kick goes through this indirection.
	var sched *variantlib.Scheduler

	exec := variantlib.NewExecutor(variantlib.ExecutorConfig{
		Store:  jobs,
		Ledger: st,
		Events: bc,
		Open: func(contentID string) (variantlib.Source, error) {
			v, err := st.Variant(context.Background(), contentID)
			if err != nil {
				return nil, err
			}
			return variantlib.NewFileSource(fs, payloadPath(v.Path)), nil
		},
		Info: func(contentID string) (variantlib.ContentInfo, error) {
			v, err := st.Variant(context.Background(), contentID)
			if err != nil {
				return variantlib.ContentInfo{}, err
			}
			return variantlib.ContentInfo{Name: v.Name, DownloadURL: v.DownloadURL}, nil
		},
		Retry:     retry,
		ChunkSize: chunkSize,
		Handlers: &variantlib.Handlers{
			RequeuedHandler: func(string, int) {
				if sched != nil {
					sched.Kick()
				}
			},
		},
		Log: l,
	})

	sched = variantlib.NewScheduler(ctx, jobs, variantlib.SchedulerConfig{
		Limit:        limit,
		PollInterval: pollInterval,
	}, exec.Run, l)

	sw, err := sweeper.New(jobs, st, sweepCron, l)
	if err != nil {
		st.Close()
		return err
	}

	svc := api.NewService(api.Config{
		Log:      l,
		Store:    st,
		Jobs:     jobs,
		Ledger:   st,
		Graph:    graph,
		Selector: variantlib.NewSelector(variantlib.TieBreak(tieBreak), time.Now().UnixNano()),
		Resolver: variantlib.NewResolver(st, graph),
		Sched:    sched,
	})

	srv := server.NewServer(l, svc, bc, addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		sw.Run(gctx)
		return nil
	})

	l.Printf("variantd %s listening on %s", version, addr)

	var result *multierror.Error
	if err := g.Wait(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := st.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing store: %w", err))
	}
	return result.ErrorOrNil()
}

// payloadPath resolves a catalog path against the content directory.
// Absolute catalog paths win.
func payloadPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(contentDir, p)
}
