package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"audioshelf/internal/library"
)

func newAuthorsCommand(ctx *commandContext) *cobra.Command {
	authorsCmd := &cobra.Command{
		Use:   "authors",
		Short: "Inspect and edit library authors",
	}
	authorsCmd.AddCommand(newAuthorsListCommand(ctx))
	authorsCmd.AddCommand(newAuthorsShowCommand(ctx))
	authorsCmd.AddCommand(newAuthorsRenameCommand(ctx))
	authorsCmd.AddCommand(newAuthorsDeleteCommand(ctx))
	return authorsCmd
}

func newAuthorsListCommand(ctx *commandContext) *cobra.Command {
	var libraryFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the authors of a library",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.resolveLibrary(cmd.Context(), libraryFlag)
			if err != nil {
				return err
			}
			svc, err := ctx.authorService()
			if err != nil {
				return err
			}
			authors, err := svc.List(cmd.Context(), lib.ID)
			if err != nil {
				return err
			}
			table := make([][]string, 0, len(authors))
			for _, a := range authors {
				table = append(table, []string{
					a.ID,
					a.Name,
					derefOr(a.ASIN, "-"),
					strconv.Itoa(a.NumBooks),
					formatMillis(a.UpdatedAt),
				})
			}
			return printListing(cmd, ctx.output(), listing{
				payload: authors,
				headers: []string{"ID", "Name", "ASIN", "Books", "Updated"},
				rows:    table,
				aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				empty:   "No authors found",
			})
		},
	}
	cmd.Flags().StringVarP(&libraryFlag, "library", "l", "", "Library id or name")
	return cmd
}

func newAuthorsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <author-id>",
		Short: "Show an author with its books and series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.authorService()
			if err != nil {
				return err
			}
			detail, err := svc.FindOne(cmd.Context(), args[0], []string{"items", "series"})
			if err != nil {
				return err
			}
			format := ctx.output()
			if format != formatTable {
				return printListing(cmd, format, listing{payload: detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", detail.Name, detail.ID)
			fmt.Fprintf(out, "ASIN: %s\n", derefOr(detail.ASIN, "-"))
			fmt.Fprintf(out, "Image: %s\n", derefOr(detail.ImagePath, "-"))
			if desc := strings.TrimSpace(derefOr(detail.Description, "")); desc != "" {
				fmt.Fprintf(out, "Description: %s\n", desc)
			}
			rows := make([][]string, 0, len(detail.LibraryItems))
			for _, b := range detail.LibraryItems {
				rows = append(rows, []string{b.ID, b.Title, strconv.Itoa(b.NumTracks)})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Book", "Title", "Tracks"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}, isTerminal(cmd)))
			}
			for _, s := range detail.Series {
				fmt.Fprintf(out, "Series %s: %d book(s)\n", s.Name, len(s.Items))
			}
			return nil
		},
	}
}

func newAuthorsRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <author-id> <new-name>",
		Short: "Rename an author, merging into an existing author of that name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.authorService()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[1])
			if name == "" {
				return fmt.Errorf("new name is required")
			}
			res, err := svc.Update(cmd.Context(), args[0], library.AuthorPatch{Name: &name})
			if err != nil {
				return err
			}
			format := ctx.output()
			if format != formatTable {
				return printListing(cmd, format, listing{payload: res})
			}
			out := cmd.OutOrStdout()
			switch {
			case res.Merged:
				fmt.Fprintf(out, "Merged into author %s (%s)\n", res.Author.Name, res.Author.ID)
			case res.Updated != nil && *res.Updated:
				fmt.Fprintf(out, "Renamed author %s to %s\n", res.Author.ID, res.Author.Name)
			default:
				fmt.Fprintln(out, "Author unchanged")
			}
			return nil
		},
	}
}

func newAuthorsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <author-id>",
		Short: "Delete an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.authorService()
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted author %s\n", args[0])
			return nil
		},
	}
}

func derefOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return humanize.Time(time.UnixMilli(ms))
}
