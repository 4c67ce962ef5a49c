package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/arthur-debert/modsync/internal/version"
	"github.com/arthur-debert/modsync/pkg/config"
	"github.com/arthur-debert/modsync/pkg/logging"
	"github.com/arthur-debert/modsync/pkg/metrics"
	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/style"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries what every command needs once the root has loaded configuration.
type app struct {
	cfg      *config.Config
	paths    paths.Paths
	metrics  *metrics.Recorder
	renderer style.Renderer
	format   style.Format

	metricsTextfile string
}

// flushMetrics writes the collected metrics when --metrics-textfile is set.
func (a *app) flushMetrics() {
	if a.metricsTextfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.metricsTextfile); err != nil {
		log.Warn().Err(err).Str("path", a.metricsTextfile).Msg("Failed to write metrics")
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		verbosity    int
		configPath   string
		instancesDir string
		plain        bool
	)
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "modsync",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging based on verbosity
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			return a.init(cmd.OutOrStdout(), configPath, instancesDir, plain)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $XDG_CONFIG_HOME/modsync/config.toml)")
	rootCmd.PersistentFlags().StringVar(&instancesDir, "instances-dir", "", "Directory holding instance trees")
	rootCmd.PersistentFlags().StringVar(&a.metricsTextfile, "metrics-textfile", "", "Write prometheus metrics to this file when done")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Disable colors and progress bars")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newResolveCmd(a))
	rootCmd.AddCommand(newSyncCmd(a))
	rootCmd.AddCommand(newStateCmd(a))
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newManCmd())

	return rootCmd
}

func (a *app) init(out io.Writer, configPath, instancesDir string, plain bool) error {
	p, err := paths.New("")
	if err != nil {
		return err
	}
	if configPath == "" {
		configPath = p.ConfigFilePath()
	}

	overrides := map[string]interface{}{}
	if instancesDir != "" {
		overrides["paths.instances_dir"] = instancesDir
	}
	cfg, err := config.LoadConfiguration(configPath, overrides)
	if err != nil {
		return err
	}

	if cfg.Paths.InstancesDir != "" {
		if p, err = paths.New(cfg.Paths.InstancesDir); err != nil {
			return err
		}
	}

	a.cfg = cfg
	a.paths = p
	a.metrics = metrics.New()
	a.format = style.FormatText
	if f, ok := out.(*os.File); ok && !plain {
		a.format = style.DetectFormat(f)
	}
	a.renderer = style.NewRenderer(a.format)

	log.Debug().
		Str("config", configPath).
		Str("instances_dir", p.InstancesDir()).
		Str("format", string(a.format)).
		Msg("Configuration loaded")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Long:  `Print detailed version information including commit hash and build date`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "modsync version %s\n", version.Version)
			fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			fmt.Fprintf(out, "Built:  %s\n", version.Date)
		},
	}
}
