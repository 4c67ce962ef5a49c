package cli

import (
	"fmt"

	"github.com/arthur-debert/modsync/pkg/manifest"
	"github.com/arthur-debert/modsync/pkg/registry"
	"github.com/arthur-debert/modsync/pkg/resolver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type resolveOptions struct {
	gameVersion  string
	loader       string
	installed    []string
	pins         map[string]string
	out          string
	catalog      string
	overridesURL string
}

func newResolveCmd(a *app) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:     "resolve <project>",
		Short:   MsgResolveShort,
		Long:    MsgResolveLong,
		Example: MsgResolveExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			return runResolve(cmd, a, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.gameVersion, "game-version", "", "Target game version (required)")
	cmd.Flags().StringVar(&opts.loader, "loader", "", "Target loader (required)")
	cmd.Flags().StringSliceVar(&opts.installed, "installed", nil, "Project ids already installed")
	cmd.Flags().StringToStringVar(&opts.pins, "pin", nil, "Pin a project to a version (id=version)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the resolution as a manifest file")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "Resolve against a YAML catalog instead of the registry")
	cmd.Flags().StringVar(&opts.overridesURL, "overrides-url", "", "Override archive URL to record in the manifest")
	_ = cmd.MarkFlagRequired("game-version")
	_ = cmd.MarkFlagRequired("loader")

	return cmd
}

func runResolve(cmd *cobra.Command, a *app, opts *resolveOptions, root string) error {
	reg, err := a.registry(opts.catalog)
	if err != nil {
		return err
	}

	installed := make(map[string]bool, len(opts.installed))
	for _, id := range opts.installed {
		installed[id] = true
	}

	r := resolver.New(reg,
		resolver.WithConcurrency(a.cfg.Registry.Concurrency),
		resolver.WithMetrics(a.metrics))

	result, err := r.Resolve(cmd.Context(), resolver.Request{
		RootID:      root,
		GameVersion: opts.gameVersion,
		Loader:      opts.loader,
		Installed:   installed,
		Pins:        opts.pins,
	})
	if result != nil {
		fmt.Fprintln(cmd.OutOrStdout(), a.renderer.RenderResolution(result))
	}
	if err != nil {
		return err
	}

	if opts.out == "" {
		return nil
	}

	m, err := manifest.FromResolution(result, a.cfg.Manifest.TypeDirs, opts.overridesURL)
	if err != nil {
		return err
	}
	if err := manifest.Save(opts.out, m); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), MsgManifestWritten, len(m.Files), opts.out)
	return nil
}

// registry returns the catalog fixture when given, else the HTTP registry.
func (a *app) registry(catalog string) (registry.Client, error) {
	if catalog != "" {
		log.Debug().Str("catalog", catalog).Msg("Using catalog registry")
		return registry.LoadMemory(catalog)
	}
	return registry.NewHTTPClient(a.cfg.Registry.BaseURL,
		registry.WithUserAgent(a.cfg.Registry.UserAgent),
		registry.WithTimeout(a.cfg.Registry.Timeout)), nil
}
