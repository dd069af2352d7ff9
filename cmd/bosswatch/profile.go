package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Export or import the user profile",
	}
	cmd.AddCommand(profileExportCmd())
	cmd.AddCommand(profileImportCmd())
	return cmd
}

func profileExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the profile as JSON to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			store, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.Export()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}

func profileImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the profile with an exported file (stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(path)
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			store, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Import(data); err != nil {
				return err
			}
			p := store.Profile()
			fmt.Fprintf(cmd.OutOrStdout(), "Imported profile with %d favorites\n", len(p.FavoriteBosses))
			return nil
		},
	}
}
