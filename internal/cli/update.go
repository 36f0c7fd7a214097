package cli

import (
	"github.com/spf13/cobra"

	"github.com/moppi-dev/moppi/pkg/errors"
)

// newUpdateCmd creates the update command.
func newUpdateCmd(s *settings) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "update <package>...",
		Short: "Refetch packages at their latest version",
		Long: `Update removes each package together with its now-unneeded transitive
dependencies and resolves it again, so the whole subtree is refetched at the
latest published versions. There is no in-place version bump.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inst, cleanup, err := newInstaller(ctx, s, refresh)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, name := range args {
				printInfo("Updating %s", StyleHighlight.Render(name))
				if err := inst.Update(ctx, name); err != nil {
					printError("Failed to update %s: %s", name, errors.UserMessage(err))
					return err
				}
				printSuccess("Updated %s", StyleHighlight.Render(name))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the registry response cache")
	return cmd
}
