package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kickpass/workspace"
)

var listCmd = &cobra.Command{
	Use:   "list [prefix...]",
	Short: "List safes",
	Args:  cobra.ArbitraryArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, prefixes []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	ws, err := workspace.Open(root)
	if err != nil {
		return err
	}

	names, err := ws.List()
	if err != nil {
		return err
	}
	sort.Strings(names)

	if len(prefixes) > 0 {
		names = filterByPrefixes(names, prefixes)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	return w.Flush()
}

// filterByPrefixes keeps only names that have one of prefixes as a
// path-segment-respecting prefix (spec.md §6.1): "a/b" matches prefix
// "a" but "ab" does not.
func filterByPrefixes(names, prefixes []string) []string {
	var out []string
	for _, name := range names {
		for _, p := range prefixes {
			if name == p || strings.HasPrefix(name, p+"/") {
				out = append(out, name)
				break
			}
		}
	}
	return out
}
