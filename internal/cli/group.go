package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// optionalGroups is the shorthand flag family for common optional
// dependency groups.
var optionalGroups = []string{"dev", "test", "cicd", "doc", "tools", "all"}

// addGroupFlags registers --optional plus the shorthand group flags on cmd.
func addGroupFlags(cmd *cobra.Command) {
	cmd.Flags().String("optional", "", "optional dependency group name")
	cmd.Flags().BoolP("dev", "d", false, "shorthand for --optional=dev")
	for _, group := range optionalGroups[1:] {
		cmd.Flags().Bool(group, false, fmt.Sprintf("shorthand for --optional=%s", group))
	}
}

// resolveGroup returns the optional group selected by flags, preferring an
// explicit --optional value over the shorthand flags.
func resolveGroup(cmd *cobra.Command) string {
	if v, _ := cmd.Flags().GetString("optional"); v != "" {
		return v
	}
	for _, group := range optionalGroups {
		if set, _ := cmd.Flags().GetBool(group); set {
			return group
		}
	}
	return ""
}
