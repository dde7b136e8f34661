package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/quill/pkg/core"
)

var (
	createName        string
	createDescription string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a note",
	Long:  `Create adds a note tagged with this session's client id and waits for the service to receive it.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(store)

		note, err := store.CreateNote(ctx, core.Form{Name: createName, Description: createDescription})
		if err != nil {
			return err
		}
		fmt.Printf("Note created: %s\n", note.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVar(&createName, "name", "", "Note name")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Note description")
}
