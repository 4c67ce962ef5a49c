package cli

import (
	"fmt"

	"github.com/arthur-debert/modsync/pkg/paths"
	"github.com/arthur-debert/modsync/pkg/types"
	"github.com/spf13/cobra"
)

func newStateCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "state <instance>",
		Short: MsgStateShort,
		Long: `State prints the files the last successful sync of an instance recorded,
with their hashes, the manifest version and when the sync happened.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := paths.ValidateInstanceID(args[0]); err != nil {
				return err
			}
			store := a.store()

			load := func(id string) (*types.LocalState, error) { return store.Load(id), nil }
			if strict {
				load = store.LoadStrict
			}
			st, err := load(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), a.renderer.RenderState(args[0], st))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of treating an unreadable state as empty")
	return cmd
}
