package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/ledger-triage/internal/domain/pipeline"
	"github.com/FACorreiaa/ledger-triage/pkg/cron"
	"github.com/FACorreiaa/ledger-triage/pkg/storage"
)

const sweepJob = "inbox-sweep"

// batchDirLayout names the per-sweep output directory.
const batchDirLayout = "20060102T150405Z"

type watchOptions struct {
	out          string
	schedule     string
	category     string
	triage       bool
	once         bool
	sweepTimeout time.Duration
}

func newWatchCmd(g *globalOptions) *cobra.Command {
	o := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <inbox>",
		Short: "Process new images dropped into an inbox directory on a schedule",
		Long: `Sweep an inbox directory on a schedule and run every image not processed before
through the pipeline. Images are recognised by content, so a renamed copy is not
processed twice. An image that fails, for example because its OCR output is not
there yet, is retried on the next sweep. Each sweep writes into its own timestamped directory under --out.

Examples:
  # Sweep every five minutes (the default schedule)
  ledger watch ./inbox --out ./out

  # Cron syntax works too
  ledger watch ./inbox --schedule "*/15 8-18 * * 1-5"

  # One sweep, then exit with the usual status
  ledger watch ./inbox --once`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, g, o, args[0])
		},
	}
	cmd.Flags().StringVarP(&o.out, "out", "o", "out", "output directory")
	cmd.Flags().StringVar(&o.schedule, "schedule", "", `sweep schedule, cron syntax or "@every 5m"`)
	cmd.Flags().StringVar(&o.category, "category", "", "file every document under this category")
	cmd.Flags().BoolVar(&o.triage, "triage", true, "flag low-confidence and invalid rows for review")
	cmd.Flags().BoolVar(&o.once, "once", false, "run a single sweep and exit")
	cmd.Flags().DurationVar(&o.sweepTimeout, "sweep-timeout", 30*time.Minute, "upper bound for one sweep")
	return cmd
}

func runWatch(cmd *cobra.Command, g *globalOptions, o *watchOptions, inbox string) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("schedule") {
		cfg.Watch.Schedule = o.schedule
	}

	log := g.newLogger(cfg)

	deps, err := InitDependencies(ctx, cfg, RunOptions{OutputDir: o.out, Triage: o.triage}, log)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	w := &watcher{deps: deps, inbox: storage.NewInbox(inbox), opts: o}

	if o.once {
		return w.sweepOnce(ctx)
	}

	sched := cron.NewScheduler(ctx, o.sweepTimeout, log)
	if err := sched.Add(sweepJob, cfg.Watch.Schedule, w.sweep); err != nil {
		return err
	}

	log.Info("watching inbox",
		slog.String("inbox", inbox),
		slog.String("schedule", cfg.Watch.Schedule),
	)
	if err := sched.RunNow(sweepJob); err != nil {
		return err
	}
	sched.Start()

	<-ctx.Done()
	<-sched.Stop().Done()
	log.Info("watch stopped", slog.Int("images_processed", w.inbox.Seen()))
	return nil
}

// watcher shares one pipeline across sweeps, so rows duplicated across sweeps are dropped too.
type watcher struct {
	deps  *Dependencies
	inbox *storage.Inbox
	opts  *watchOptions
}

func (w *watcher) sweep(ctx context.Context) error {
	_, _, err := w.process(ctx)
	return err
}

// sweepOnce maps a single sweep onto the parse exit codes.
func (w *watcher) sweepOnce(ctx context.Context) error {
	written, flagged, err := w.process(ctx)
	if err != nil {
		return err
	}
	if written == 0 || flagged {
		return staged()
	}
	return nil
}

func (w *watcher) process(ctx context.Context) (int, bool, error) {
	log := w.deps.Logger

	files, err := w.inbox.Sweep(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(files) == 0 {
		log.Debug("no new images")
		return 0, false, nil
	}

	batchDir := filepath.Join(w.opts.out, time.Now().UTC().Format(batchDirLayout))
	store, err := storage.NewLocalStorage(batchDir)
	if err != nil {
		return 0, false, err
	}

	res, err := w.deps.Pipeline.Run(ctx, documents(files, w.opts.category))
	if err != nil {
		return 0, false, fmt.Errorf("sweep interrupted: %w", err)
	}

	written, err := writeRun(ctx, w.deps, store, res)
	if err != nil {
		return 0, false, err
	}
	w.inbox.Mark(processed(files, res)...)

	log.Info("sweep complete",
		slog.Int("images", len(files)),
		slog.Int("rows", written),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("failed", res.Failed),
		slog.String("output", batchDir),
	)
	return written, res.Flagged(), nil
}

// processed returns the hashes of files whose document made it through the pipeline.
// Failed images stay unmarked and are retried on the next sweep.
func processed(files []*storage.FileInfo, res pipeline.RunResult) []string {
	hashes := make(map[string]string, len(files))
	for _, f := range files {
		hashes[f.Path] = f.Hash
	}

	var done []string
	for _, out := range res.Outcomes {
		if out.OK() {
			done = append(done, hashes[out.Document.Path])
		}
	}
	return done
}
