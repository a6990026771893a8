// Package commands implements the CLI commands for cleanlink.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/cleanlink/internal/config"
	"github.com/jmylchreest/cleanlink/internal/logger"
	"github.com/jmylchreest/cleanlink/internal/output"
	"github.com/jmylchreest/cleanlink/pkg/settings"
)

var (
	cfgFile   string
	cfg       config.Config
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "cleanlink",
	Short: "Strip tracking parameters from URLs",
	Long: `Cleanlink removes tracking parameters (utm_*, gclid, fbclid and
friends) from URLs while leaving everything else untouched.

Parameters are grouped into categories that can be switched on and off,
and extra parameter names can be added. Settings and usage counters are
kept in a file, in Redis, or only in memory.

Examples:
  # Clean a URL
  cleanlink clean "https://example.com/page?id=7&utm_source=news&fbclid=abc"

  # Clean every URL inside a block of text
  pbpaste | cleanlink clean --text

  # See what would be removed without counting it
  cleanlink preview "https://shop.example.com/item?ref=sr_1_1&pf_rd_r=XYZ"

  # Clean every link on a page
  cleanlink links https://example.com/blog --selector "article a"

  # Serve the JSON API
  cleanlink serve --addr 127.0.0.1:8484`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.cleanlink.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.BoolP("quiet", "q", false, "suppress progress output")
	pf.Bool("log-json", false, "write logs as JSON")
	pf.String("store", "", "settings backend: memory, file or redis")
	pf.String("settings-file", "", "settings file for the file backend")
	pf.String("redis-url", "", "Redis URL for the redis backend")
	pf.StringP("format", "f", "text", "output format: text, json, jsonl or yaml")

	_ = viper.BindPFlag("debug", pf.Lookup("debug"))
	_ = viper.BindPFlag("quiet", pf.Lookup("quiet"))
	_ = viper.BindPFlag("log.json", pf.Lookup("log-json"))
	_ = viper.BindPFlag("store.backend", pf.Lookup("store"))
	_ = viper.BindPFlag("store.path", pf.Lookup("settings-file"))
	_ = viper.BindPFlag("store.redis_url", pf.Lookup("redis-url"))
}

func initConfig() {
	if err := config.LoadDotEnv(".env"); err != nil {
		configErr = err
		return
	}
	config.Setup(viper.GetViper(), cfgFile)
	configErr = config.ReadFile(viper.GetViper(), cfgFile != "")
}

// loadConfig runs before every command: it validates the merged
// configuration and sets up logging.
func loadConfig(_ *cobra.Command, _ []string) error {
	if configErr != nil {
		return configErr
	}

	var err error
	cfg, err = config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger.Init(logger.Options{
		Level: cfg.Log.Level,
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  cfg.Log.JSON,
	})
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

// openManager opens the configured settings store. The returned func
// closes it.
func openManager(ctx context.Context) (*settings.Manager, func(), error) {
	store, err := cfg.Store.OpenStore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s settings store: %w", cfg.Store.Backend, err)
	}
	logger.Debug("settings store opened", "backend", cfg.Store.Backend)

	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close settings store", "error", err)
		}
	}
	return settings.NewManager(store), closeFn, nil
}

// newWriter creates the writer selected with --format.
func newWriter(cmd *cobra.Command) (output.Writer, output.Format, error) {
	name, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(name)
	if err != nil {
		return nil, "", err
	}
	w, err := output.NewWriter(cmd.OutOrStdout(), format)
	if err != nil {
		return nil, "", err
	}
	return w, format, nil
}

// readInput returns args, or the non-blank lines of stdin when there are none.
func readInput(in io.Reader, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return nonBlankLines(string(data)), nil
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
