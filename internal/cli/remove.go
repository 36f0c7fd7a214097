package cli

import (
	"github.com/spf13/cobra"

	"github.com/moppi-dev/moppi/pkg/errors"
)

// newRemoveCmd creates the remove command.
func newRemoveCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <package>...",
		Short: "Remove packages and their unneeded transitive dependencies",
		Long: `Remove uninstalls each root-level package. Indirect dependencies whose last
requirer disappears are removed as well, together with their on-disk
artifacts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inst, cleanup, err := newInstaller(ctx, s, false)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, name := range args {
				printInfo("Removing %s", StyleHighlight.Render(name))
				if err := inst.Remove(ctx, name); err != nil {
					printError("Failed to remove %s: %s", name, errors.UserMessage(err))
					return err
				}
				printSuccess("Removed %s", StyleHighlight.Render(name))
			}
			return nil
		},
	}
	return cmd
}
