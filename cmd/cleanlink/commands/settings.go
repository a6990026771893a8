package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/cleanlink/internal/output"
	"github.com/jmylchreest/cleanlink/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change which parameters are removed",
	Long: `Show or change the enabled categories and the custom parameter list.

Examples:
  cleanlink settings show
  cleanlink settings disable amazon generic
  cleanlink settings add-param sessiontoken
  cleanlink settings reset`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSettings(cmd, nil)
	},
}

var settingsEnableCmd = &cobra.Command{
	Use:   "enable <category>...",
	Short: "Enable categories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(s *settings.Settings) error {
			for _, name := range args {
				if err := s.EnableCategory(name); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var settingsDisableCmd = &cobra.Command{
	Use:   "disable <category>...",
	Short: "Disable categories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(s *settings.Settings) error {
			for _, name := range args {
				if err := s.DisableCategory(name); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var settingsAddParamCmd = &cobra.Command{
	Use:   "add-param <name>...",
	Short: "Add custom parameters to remove",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(s *settings.Settings) error {
			for _, name := range args {
				added, err := s.AddCustomParam(name)
				if err != nil {
					return err
				}
				if !added {
					logInfo("%s is already in the list", strings.TrimSpace(name))
				}
			}
			return nil
		})
	},
}

var settingsRemoveParamCmd = &cobra.Command{
	Use:   "remove-param <name>...",
	Short: "Remove custom parameters",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(s *settings.Settings) error {
			for _, name := range args {
				if !s.RemoveCustomParam(name) {
					logInfo("%s was not in the list", name)
				}
			}
			return nil
		})
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the defaults, including the statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSettings(cmd, func(s *settings.Settings) error {
			s.Reset()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(
		settingsShowCmd,
		settingsEnableCmd,
		settingsDisableCmd,
		settingsAddParamCmd,
		settingsRemoveParamCmd,
		settingsResetCmd,
	)
}

// settingsView is the text rendering of Settings.
type settingsView struct {
	settings.Settings
}

func (v settingsView) TextLines() []string {
	custom := "(none)"
	if len(v.CustomParams) > 0 {
		custom = strings.Join(v.CustomParams, ", ")
	}
	enabled := "(none)"
	if len(v.EnabledCategories) > 0 {
		enabled = strings.Join(v.EnabledCategories, ", ")
	}
	return []string{
		"Enabled categories: " + enabled,
		"Custom parameters:  " + custom,
		fmt.Sprintf("Links cleaned:      %s", humanize.Comma(v.Stats.CleanedCount)),
		fmt.Sprintf("Params removed:     %s", humanize.Comma(v.Stats.ParamsRemoved)),
	}
}

// withSettings applies fn (when non-nil) and prints the resulting settings.
func withSettings(cmd *cobra.Command, fn func(*settings.Settings) error) error {
	ctx := cmd.Context()

	w, format, err := newWriter(cmd)
	if err != nil {
		return err
	}
	defer w.Close()

	mgr, closeStore, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var current settings.Settings
	if fn == nil {
		current, err = mgr.Settings(ctx)
	} else {
		current, err = mgr.Update(ctx, fn)
	}
	if err != nil {
		return err
	}

	var item any = current
	if format == output.FormatText {
		item = settingsView{current}
	}
	if err := w.Write(item); err != nil {
		return err
	}
	return w.Flush()
}
