package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var outputFlag string

	ctx := newCommandContext(&configFlag, &outputFlag)

	rootCmd := &cobra.Command{
		Use:           "audioshelf",
		Short:         "audioshelf library CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseOutputFormat(outputFlag); err != nil {
				return err
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		ctx.close()
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output format: table, json or yaml")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newAuthorsCommand(ctx))
	rootCmd.AddCommand(newSeriesCommand(ctx))
	rootCmd.AddCommand(newFoldersCommand(ctx))
	rootCmd.AddCommand(newShelfCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
