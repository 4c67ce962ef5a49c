package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/modsync/pkg/config"
	"github.com/arthur-debert/modsync/pkg/download"
	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/arthur-debert/modsync/pkg/filesystem"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/manifest"
	"github.com/arthur-debert/modsync/pkg/statestore"
	"github.com/arthur-debert/modsync/pkg/style"
	"github.com/arthur-debert/modsync/pkg/syncer"
	"github.com/spf13/cobra"
)

type syncOptions struct {
	manifest string
	dryRun   bool
	verify   string
}

func newSyncCmd(a *app) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:     "sync <instance>",
		Short:   MsgSyncShort,
		Long:    MsgSyncLong,
		Example: MsgSyncExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			return runSync(cmd, a, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "Manifest file (JSON, YAML or TOML)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the plan without changing anything")
	cmd.Flags().StringVar(&opts.verify, "verify", "", "Override sync.verify_mode (trust or rehash)")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runSync(cmd *cobra.Command, a *app, opts *syncOptions, instanceID string) error {
	m, err := manifest.Load(opts.manifest)
	if err != nil {
		return err
	}

	mode := a.cfg.Sync.VerifyMode
	if opts.verify != "" {
		mode = config.VerifyMode(opts.verify)
		if mode != config.VerifyTrust && mode != config.VerifyRehash {
			return errors.Newf(errors.ErrInvalidInput, "unknown verify mode %q", opts.verify).
				WithDetail("verify", opts.verify)
		}
	}

	engine := a.engine(mode)
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.dryRun {
		plan, err := engine.Plan(ctx, instanceID, m)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, a.renderer.RenderPlan(instanceID, plan))
		fmt.Fprintln(out, MsgDryRunNotice)
		return nil
	}

	result, err := engine.StartSync(ctx, instanceID, m, a.progressSink(cmd))
	if err != nil {
		if errors.IsCancelled(err) && ctx.Err() != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), MsgSyncCancelled, instanceID)
		}
		return err
	}

	fmt.Fprintln(out, a.renderer.RenderSyncResult(instanceID, result))
	return nil
}

func (a *app) store() *statestore.Store {
	return statestore.New(filesystem.NewOS(), a.paths.StateFilePath)
}

func (a *app) engine(mode config.VerifyMode) *syncer.Engine {
	fetcher := download.NewHTTPFetcher(a.cfg.Registry.UserAgent, a.cfg.Sync.HTTPTimeout)
	return syncer.NewEngine(a.paths, a.store(), fetcher,
		syncer.WithConcurrency(a.cfg.Sync.DownloadConcurrency),
		syncer.WithVerifyMode(mode),
		syncer.WithExtractChunkSize(a.cfg.Sync.ExtractChunkSize),
		syncer.WithMetrics(a.metrics))
}

// progressSink picks a progress bar for terminals and log lines otherwise.
func (a *app) progressSink(cmd *cobra.Command) syncer.ProgressSink {
	if a.format == style.FormatTerminal {
		return newBarSink(cmd.ErrOrStderr())
	}
	return &logSink{logger: logging.GetLogger("cli.sync")}
}
