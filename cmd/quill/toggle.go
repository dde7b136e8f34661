package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Flip the completed flag of a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(store)

		note, err := store.ToggleCompleted(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Note %s completed=%v\n", note.ID, note.Completed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}
