package cli

import (
	"github.com/spf13/cobra"

	"github.com/moppi-dev/moppi/pkg/errors"
)

// newApplyCmd creates the apply command.
func newApplyCmd(s *settings) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Download artifacts missing for recorded dependencies",
		Long: `Apply walks the root dependencies recorded in the lock file and downloads
any whose artifact is missing from the install target directory. The lock
file already encodes the full transitive closure, so no resolution happens
and the file is never modified.

Examples:
  moppi apply
  moppi apply --optional=dev`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			group := resolveGroup(cmd)
			if group == "all" {
				// No filter: every recorded root, optional groups included.
				group = ""
			}

			inst, cleanup, err := newInstaller(ctx, s, refresh)
			if err != nil {
				return err
			}
			defer cleanup()

			printInfo("Applying %s", StyleHighlight.Render(s.configPath))
			p := newProgress(loggerFromContext(ctx))
			if err := inst.Apply(ctx, group); err != nil {
				printError("Apply failed: %s", errors.UserMessage(err))
				return err
			}
			p.done("Applied " + s.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the registry response cache")
	addGroupFlags(cmd)
	return cmd
}
