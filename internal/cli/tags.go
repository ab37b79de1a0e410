package cli

import (
	"fmt"
	"io"

	"github.com/ppiankov/restomaps/internal/annotate"
	"github.com/spf13/cobra"
)

var tagsJSON bool

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every topical tag by category",
	Long: `Tags prints the fixed tag catalog grouped by category. The Russian
label is the value stored with annotated reviews; the English label is what
--english output shows.

Example:
  restomaps tags
  restomaps tags --json`,
	Args: cobra.NoArgs,
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)

	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "print JSON instead of text")
}

// tagEntry is one catalog row of the JSON output
type tagEntry struct {
	Tag      annotate.Tag      `json:"tag"`
	English  string            `json:"english"`
	Category annotate.Category `json:"category"`
}

func runTags(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	grouped := annotate.ByCategory(annotate.Catalog())

	if tagsJSON {
		entries := make([]tagEntry, 0, len(annotate.Catalog()))
		for _, c := range annotate.Categories() {
			for _, t := range grouped[c] {
				entries = append(entries, tagEntry{Tag: t, English: t.English(), Category: c})
			}
		}
		return writeJSON(out, entries)
	}

	printTags(out, grouped)
	return nil
}

func printTags(w io.Writer, grouped map[annotate.Category][]annotate.Tag) {
	for i, c := range annotate.Categories() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d):\n", c, len(grouped[c]))
		for _, t := range grouped[c] {
			fmt.Fprintf(w, "  %-32s %s\n", t, t.English())
		}
	}
}
