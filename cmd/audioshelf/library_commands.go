package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"audioshelf/internal/api"
	"audioshelf/internal/events"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Inspect library series",
	}

	var libraryFlag string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the series of a library",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.resolveLibrary(cmd.Context(), libraryFlag)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			series, err := api.NewSeriesService(st, events.Nop{}, ctx.logger()).List(cmd.Context(), lib.ID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(series))
			for _, s := range series {
				rows = append(rows, []string{s.ID, s.Name, strconv.Itoa(s.NumBooks), formatMillis(s.AddedAt)})
			}
			return printListing(cmd, ctx.output(), listing{
				payload: series,
				headers: []string{"ID", "Name", "Books", "Added"},
				rows:    rows,
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				empty:   "No series found",
			})
		},
	}
	listCmd.Flags().StringVarP(&libraryFlag, "library", "l", "", "Library id or name")
	seriesCmd.AddCommand(listCmd)
	return seriesCmd
}

func newFoldersCommand(ctx *commandContext) *cobra.Command {
	foldersCmd := &cobra.Command{
		Use:   "folders",
		Short: "Manage library folders",
	}

	service := func() (*api.FolderService, error) {
		st, err := ctx.openStore()
		if err != nil {
			return nil, err
		}
		return api.NewFolderService(st, events.Nop{}, ctx.logger()), nil
	}

	var listLibrary string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the folders of a library",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.resolveLibrary(cmd.Context(), listLibrary)
			if err != nil {
				return err
			}
			svc, err := service()
			if err != nil {
				return err
			}
			folders, err := svc.List(cmd.Context(), lib.ID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(folders))
			for _, f := range folders {
				rows = append(rows, []string{f.ID, f.FullPath, formatMillis(f.AddedAt)})
			}
			return printListing(cmd, ctx.output(), listing{
				payload: folders,
				headers: []string{"ID", "Path", "Added"},
				rows:    rows,
				empty:   "No folders found",
			})
		},
	}
	listCmd.Flags().StringVarP(&listLibrary, "library", "l", "", "Library id or name")

	var addLibrary string
	addCmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Add a folder to a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.resolveLibrary(cmd.Context(), addLibrary)
			if err != nil {
				return err
			}
			svc, err := service()
			if err != nil {
				return err
			}
			folder, err := svc.Add(cmd.Context(), lib.ID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added folder %s (%s) to %s\n", folder.FullPath, folder.ID, lib.Name)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&addLibrary, "library", "l", "", "Library id or name")

	removeCmd := &cobra.Command{
		Use:   "remove <folder-id>",
		Short: "Remove a folder and the books scanned from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service()
			if err != nil {
				return err
			}
			if err := svc.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed folder %s\n", args[0])
			return nil
		},
	}

	foldersCmd.AddCommand(listCmd, addCmd, removeCmd)
	return foldersCmd
}
