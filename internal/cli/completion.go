package cli

import (
	"fmt"

	"github.com/arthur-debert/modsync/internal/version"
	"github.com/arthur-debert/modsync/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: MsgCompletionShort,
		Long: `To load completions:

Bash:
  $ source <(modsync completion bash)

Zsh:
  $ modsync completion zsh > "${fpath[1]}/_modsync"

Fish:
  $ modsync completion fish | source

PowerShell:
  PS> modsync completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return errors.Newf(errors.ErrInvalidInput, "unknown shell %s", args[0])
		},
	}
}

func newManCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  MsgManShort,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			header := &doc.GenManHeader{
				Title:   "MODSYNC",
				Section: "1",
				Source:  "modsync " + version.Version,
				Manual:  "modsync manual",
			}
			if err := doc.GenMan(cmd.Root(), header, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("failed to generate man page: %w", err)
			}
			return nil
		},
	}
}
