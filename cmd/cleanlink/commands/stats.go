package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/cleanlink/internal/output"
	"github.com/jmylchreest/cleanlink/pkg/settings"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many links have been cleaned",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

type statsView struct {
	settings.Stats
}

func (v statsView) TextLines() []string {
	return []string{
		"Links cleaned:  " + humanize.Comma(v.CleanedCount),
		"Params removed: " + humanize.Comma(v.ParamsRemoved),
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
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

	current, err := mgr.Settings(ctx)
	if err != nil {
		return err
	}

	var item any = current.Stats
	if format == output.FormatText {
		item = statsView{current.Stats}
	}
	if err := w.Write(item); err != nil {
		return err
	}
	return w.Flush()
}
