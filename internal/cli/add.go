package cli

import (
	"github.com/spf13/cobra"

	"github.com/moppi-dev/moppi/pkg/errors"
)

// newAddCmd creates the add command.
func newAddCmd(s *settings) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "add <package>...",
		Short: "Add packages and their transitive dependencies",
		Long: `Add fetches each package from PyPI, extracts its artifact into the install
target directory, resolves its declared requirements recursively, and records
the result in the lock file.

Examples:
  moppi add Werkzeug
  moppi add --optional=dev black
  moppi add -d pytest`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			group := resolveGroup(cmd)

			inst, cleanup, err := newInstaller(ctx, s, refresh)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, name := range args {
				printInfo("Adding %s", StyleHighlight.Render(name))
				if err := inst.Add(ctx, name, group); err != nil {
					printError("Failed to add %s: %s", name, errors.UserMessage(err))
					return err
				}
				printSuccess("Added %s", StyleHighlight.Render(name))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the registry response cache")
	addGroupFlags(cmd)
	return cmd
}
