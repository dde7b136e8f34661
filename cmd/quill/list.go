package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/aretw0/quill/pkg/core"
)

var (
	listJSON          bool
	listHideCompleted bool
	listMatch         string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listMatch != "" && !doublestar.ValidatePattern(listMatch) {
			return fmt.Errorf("invalid --match pattern %q", listMatch)
		}

		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(store)

		if listHideCompleted && !store.HideCompleted() {
			store.ToggleHideCompleted()
		}

		notes := filterNotes(store.Visible(), listMatch)

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(notes)
		}

		for _, n := range notes {
			fmt.Println(formatNote(n))
		}
		return nil
	},
}

// filterNotes keeps notes whose name matches the glob. An empty pattern keeps all.
func filterNotes(notes []core.Note, pattern string) []core.Note {
	if pattern == "" {
		return notes
	}
	out := make([]core.Note, 0, len(notes))
	for _, n := range notes {
		if ok, _ := doublestar.Match(pattern, n.Name); ok {
			out = append(out, n)
		}
	}
	return out
}

func formatNote(n core.Note) string {
	mark := "[ ]"
	if n.Completed {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s %s - %s", mark, n.ID, n.Name, n.Description)
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listHideCompleted, "hide-completed", false, "Skip completed notes")
	listCmd.Flags().StringVar(&listMatch, "match", "", "Only notes whose name matches this glob")
}
