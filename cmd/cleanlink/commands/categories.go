package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/cleanlink/pkg/params"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories [name]",
	Short: "List the tracking parameter categories",
	Long: `List every category with its parameters and whether it is enabled.
Parameters starting with utm_ are removed whatever the categories say.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

type categoryInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Params  []string `json:"params" yaml:"params"`
}

func (c categoryInfo) TextLines() []string {
	state := "disabled"
	if c.Enabled {
		state = "enabled"
	}
	return []string{fmt.Sprintf("%-10s %-8s %s", c.Name, state, strings.Join(c.Params, ", "))}
}

func runCategories(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	names := params.Names()
	if len(args) == 1 {
		if !params.IsKnown(args[0]) {
			return fmt.Errorf("unknown category %q (known: %s)", args[0], strings.Join(names, ", "))
		}
		names = args
	}

	mgr, closeStore, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	current, err := mgr.Settings(ctx)
	if err != nil {
		return err
	}

	w, _, err := newWriter(cmd)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, name := range names {
		ps, _ := params.Lookup(name)
		info := categoryInfo{Name: name, Enabled: current.IsEnabled(name), Params: ps}
		if err := w.Write(info); err != nil {
			return err
		}
	}
	return w.Flush()
}
