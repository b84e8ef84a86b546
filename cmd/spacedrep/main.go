package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/conorfennell/spacedrep/internal/config"
	"github.com/conorfennell/spacedrep/internal/deck"
	"github.com/conorfennell/spacedrep/internal/logging"
	"github.com/conorfennell/spacedrep/internal/parser"
	"github.com/conorfennell/spacedrep/internal/review"
	"github.com/conorfennell/spacedrep/internal/sm2"
	"github.com/conorfennell/spacedrep/internal/storage"
	"github.com/conorfennell/spacedrep/internal/web"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	user      string
	addSource string
	sync      bool
	serve     bool
	scan      string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "spacedrep: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("spacedrep", pflag.ContinueOnError)
	config.RegisterFlags(flags)

	var opts options
	flags.StringVar(&opts.user, "user", "", "User the source or sync applies to")
	flags.StringVar(&opts.addSource, "add-source", "", "Register a local directory or git URL as a deck source")
	flags.BoolVar(&opts.sync, "sync", false, "Sync deck sources (all users unless --user is set)")
	flags.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API")
	flags.StringVar(&opts.scan, "scan", "", "Parse the decks in a directory and report, without touching the database")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if opts.scan != "" {
		return scan(opts.scan, stdout)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", zap.String("path", cfg.DB))

	syncer := deck.NewSyncer(db, cfg.ReposDir, logger, deck.WithProgress(stdout))

	if opts.addSource != "" {
		if opts.user == "" {
			return errors.New("--add-source requires --user")
		}
		src, err := syncer.AddSource(ctx, opts.user, opts.addSource)
		if err != nil {
			return fmt.Errorf("failed to add source: %w", err)
		}
		fmt.Fprintf(stdout, "Added %s source %d: %s\n", src.Type, src.ID, src.Path)
	}

	if opts.sync {
		var report deck.Report
		if opts.user != "" {
			report, err = syncer.SyncUser(ctx, opts.user)
		} else {
			report, err = syncer.SyncAll(ctx)
		}
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printReport(stdout, report)
	}

	if !opts.serve {
		return nil
	}

	scheduler, err := sm2.NewScheduler(sm2.Params{MaxIntervalDays: cfg.Scheduler.MaxIntervalDays})
	if err != nil {
		return err
	}
	policy := sm2.NewFirst
	if !cfg.Scheduler.NewCardsFirst {
		policy = sm2.NewLast
	}
	svc := review.NewService(db, scheduler, logger, review.Options{
		MaxAttempts:   cfg.Review.MaxAttempts,
		NewCardPolicy: policy,
	})

	return serve(ctx, logger, cfg.Addr, web.NewServer(svc, syncer, logger, cfg.Review.DueLimit))
}

func serve(ctx context.Context, logger *zap.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// scan parses every markdown file below dir and prints a summary.
func scan(dir string, out io.Writer) error {
	var total int
	var parseErrs []error

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		cards, err := parser.ParseFile(path)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("%s: %w", path, err))
		}
		total += len(cards)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking directory %s: %w", dir, err)
	}

	fmt.Fprintf(out, "Found %d cards, %d errors.\n", total, len(parseErrs))
	for _, e := range parseErrs {
		fmt.Fprintf(out, "- %s\n", e)
	}
	return nil
}

func printReport(out io.Writer, r deck.Report) {
	fmt.Fprintf(out, "Synced %d sources: %d cards parsed, %d new, %d removed.\n",
		r.Sources, r.Parsed, r.Inserted, r.Orphaned)
	for _, e := range r.Errors {
		fmt.Fprintf(out, "- %s\n", e)
	}
}
