package commands

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/cleanlink/internal/output"
	"github.com/jmylchreest/cleanlink/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, format, err := newWriter(cmd)
		if err != nil {
			return err
		}
		defer w.Close()

		var item any = version.Get()
		if format == output.FormatText {
			item = version.Full()
		}
		if err := w.Write(item); err != nil {
			return err
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
