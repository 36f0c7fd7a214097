package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/moppi-dev/moppi/pkg/buildinfo"
)

// settings holds the persistent flags shared by all commands.
type settings struct {
	configPath string
	target     string
	noCache    bool
}

// Execute runs the moppi CLI and returns an error if any command fails.
//
// Logging defaults to info level on stderr; --verbose (-v) switches to
// debug. The logger is attached to the command context and accessible to
// all commands via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool
	s := &settings{}

	root := &cobra.Command{
		Use:          "moppi",
		Short:        "Moppi is a minimal Python package installer",
		Long:         `Moppi installs Python packages from PyPI, tracks direct, optional and indirect dependencies in a lock file, and removes packages together with the transitive dependencies that become unneeded.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&s.configPath, "config", "pyproject.toml", "lock file path (.toml or .yaml selects the format)")
	root.PersistentFlags().StringVar(&s.target, "target", "site-packages", "install target directory")
	root.PersistentFlags().BoolVar(&s.noCache, "no-cache", false, "disable the registry response cache")

	root.AddCommand(newAddCmd(s))
	root.AddCommand(newRemoveCmd(s))
	root.AddCommand(newUpdateCmd(s))
	root.AddCommand(newApplyCmd(s))
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(ctx)
}
