package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cleanlink/internal/output"
	"github.com/jmylchreest/cleanlink/pkg/cleaner"
)

var previewCmd = &cobra.Command{
	Use:   "preview <url>",
	Short: "Show what cleaning a URL would remove",
	Long: `Show the original URL, the cleaned URL and the removed parameters.
Previews are never counted in the statistics.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

// preview is the text rendering of a Result.
type preview struct {
	cleaner.Result
}

func (p preview) TextLines() []string {
	lines := []string{
		"Original: " + p.Original,
		"Cleaned:  " + p.URL,
	}
	if !p.Changed() {
		return append(lines, "✓ Already Clean")
	}
	return append(lines,
		"Removed:  "+strings.Join(p.Removed, ", "),
		fmt.Sprintf("%d params removed", p.RemovedCount),
	)
}

func runPreview(cmd *cobra.Command, args []string) error {
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

	r, err := mgr.Preview(ctx, args[0])
	if err != nil {
		return err
	}

	var item any = r
	if format == output.FormatText {
		item = preview{r}
	}
	if err := w.Write(item); err != nil {
		return err
	}
	return w.Flush()
}
