package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/cleanlink/internal/logger"
	"github.com/jmylchreest/cleanlink/pkg/cleaner"
	"github.com/jmylchreest/cleanlink/pkg/fetcher"
	"github.com/jmylchreest/cleanlink/pkg/linkscan"
)

var linksCmd = &cobra.Command{
	Use:   "links <url-or-file>",
	Short: "Clean every link on a page",
	Long: `Fetch a page (or read a local HTML file, "-" for stdin), find its
links and print each one cleaned. Relative links are resolved against the
page URL, or against --base for files.

With --rewrite the document itself is printed with every tracking
parameter stripped from its links.

Link scanning is a preview: nothing is counted in the statistics.

Examples:
  cleanlink links https://example.com/newsletter
  cleanlink links https://example.com/app --dynamic --wait-for "#content"
  cleanlink links saved.html --base https://example.com/ --changed
  cleanlink links page.html --rewrite > page.clean.html`,
	Args: cobra.ExactArgs(1),
	RunE: runLinks,
}

func init() {
	rootCmd.AddCommand(linksCmd)

	f := linksCmd.Flags()
	f.Bool("dynamic", false, "render the page in headless Chrome before scanning")
	f.String("wait-for", "", "CSS selector to wait for (with --dynamic)")
	f.String("selector", linkscan.DefaultSelector, "CSS selector for link elements")
	f.String("pattern", "", "only keep links matching this regular expression")
	f.String("base", "", "base URL for relative links in a local file")
	f.Bool("changed", false, "only print links that had parameters removed")
	f.Bool("rewrite", false, "print the document with cleaned links instead of a link list")
}

func runLinks(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	selector, _ := flags.GetString("selector")
	pattern, _ := flags.GetString("pattern")
	changedOnly, _ := flags.GetBool("changed")
	rewrite, _ := flags.GetBool("rewrite")

	scanner, err := linkscan.New(selector, pattern)
	if err != nil {
		return err
	}

	html, base, err := loadDocument(ctx, cmd, args[0])
	if err != nil {
		return err
	}

	mgr, closeStore, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := mgr.Cleaner(ctx)
	if err != nil {
		return err
	}

	if rewrite {
		out, rewritten, err := scanner.Rewrite(html, base, c)
		if err != nil {
			return err
		}
		logInfo("Rewrote %d link(s)", len(rewritten))
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}

	results, err := scanner.Scan(html, base, c)
	if err != nil {
		return err
	}
	if changedOnly {
		kept := results[:0]
		for _, r := range results {
			if r.Changed() {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	logInfo("Found %d link(s)", len(results))

	w, format, err := newWriter(cmd)
	if err != nil {
		return err
	}
	defer w.Close()
	if results == nil {
		results = []cleaner.Result{}
	}
	return writeResults(w, format, results)
}

// loadDocument returns the HTML to scan and the URL that relative links
// resolve against.
func loadDocument(ctx context.Context, cmd *cobra.Command, source string) (string, string, error) {
	base, _ := cmd.Flags().GetString("base")

	if source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), base, nil
	}

	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		data, err := os.ReadFile(source)
		if err != nil {
			return "", "", fmt.Errorf("failed to read %s: %w", source, err)
		}
		logger.Debug("read local document", "path", source, "size", humanize.Bytes(uint64(len(data))))
		return string(data), base, nil
	}

	mode := cfg.Fetch.Mode
	if dynamic, _ := cmd.Flags().GetBool("dynamic"); dynamic {
		mode = "dynamic"
	}
	waitFor, _ := cmd.Flags().GetString("wait-for")

	f, err := fetcher.New(mode, cfg.Fetch.UserAgent, cfg.Fetch.Timeout)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	logInfo("Fetching %s (%s)", source, f.Type())
	content, err := f.Fetch(ctx, source, fetcher.Options{WaitForSelector: waitFor})
	if err != nil {
		return "", "", err
	}
	logger.Info("page fetched",
		"url", content.URL,
		"status", content.StatusCode,
		"title", content.Title,
		"size", humanize.Bytes(uint64(len(content.HTML))))

	if base == "" {
		base = content.URL
	}
	return content.HTML, base, nil
}
