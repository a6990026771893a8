package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cleanlink/internal/output"
	"github.com/jmylchreest/cleanlink/pkg/cleaner"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [url...]",
	Short: "Remove tracking parameters from URLs",
	Long: `Clean each URL given as an argument, or each line of stdin, and print
the cleaned URLs in the same order. Input that is not an absolute URL is
printed unchanged.

Every cleaned URL counts towards the usage statistics unless --no-record
is given.

With --text, stdin (or the arguments joined by spaces) is treated as free
text: every URL inside it is cleaned in place and the rewritten text is
printed.

Examples:
  cleanlink clean "https://example.com/?id=1&utm_source=x"
  cat urls.txt | cleanlink clean --format jsonl
  cleanlink clean --text < message.txt`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().Bool("text", false, "clean every URL found in free text")
	cleanCmd.Flags().Bool("no-record", false, "do not count this cleaning in the statistics")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	textMode, _ := cmd.Flags().GetBool("text")
	noRecord, _ := cmd.Flags().GetBool("no-record")

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

	if textMode {
		text, err := readText(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		c, err := mgr.Cleaner(ctx)
		if err != nil {
			return err
		}
		res := c.CleanText(text)
		if !noRecord {
			if err := mgr.Record(ctx, res.URLs...); err != nil {
				return err
			}
		}
		logInfo("Cleaned %d URL(s), removed %d parameter(s)", len(res.URLs), res.RemovedCount)

		if format == output.FormatText {
			_, err := io.WriteString(cmd.OutOrStdout(), res.Text)
			return err
		}
		if err := w.Write(res); err != nil {
			return err
		}
		return w.Flush()
	}

	urls, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no URLs given")
	}

	var results []cleaner.Result
	if noRecord {
		c, err := mgr.Cleaner(ctx)
		if err != nil {
			return err
		}
		for _, u := range urls {
			results = append(results, c.Clean(u))
		}
	} else {
		results, err = mgr.CleanAll(ctx, urls)
		if err != nil {
			return err
		}
	}

	removed := 0
	for _, r := range results {
		removed += r.RemovedCount
	}
	logInfo("Cleaned %d URL(s), removed %d parameter(s)", len(results), removed)

	return writeResults(w, format, results)
}

// writeResults prints bare cleaned URLs for text output and full results
// otherwise.
func writeResults(w output.Writer, format output.Format, results []cleaner.Result) error {
	if format == output.FormatText {
		urls := make([]string, len(results))
		for i, r := range results {
			urls[i] = r.URL
		}
		return output.WriteSlice(w, urls)
	}
	return output.WriteSlice(w, results)
}

func readText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
