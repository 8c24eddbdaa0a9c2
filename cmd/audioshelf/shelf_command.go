package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"audioshelf/internal/api"
	"audioshelf/internal/bookshelf"
	"audioshelf/internal/events"
)

const previewViewID = "cli-preview"

func newShelfCommand(ctx *commandContext) *cobra.Command {
	shelfCmd := &cobra.Command{
		Use:   "shelf",
		Short: "Bookshelf layout tools",
	}

	var (
		libraryFlag string
		req         api.ShelfRequest
		user        string
	)
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Lay out a bookshelf window and print the mounted cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := ctx.resolveLibrary(cmd.Context(), libraryFlag)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			svc := api.NewShelfService(api.ShelfServiceOptions{
				Store:  st,
				Layout: ctx.config.Bookshelf,
				Events: events.Nop{},
				Logger: ctx.logger(),
			})
			result, err := svc.Render(cmd.Context(), lib.ID, previewViewID, user, req)
			if err != nil {
				return err
			}
			defer svc.Reset(lib.ID, user, previewViewID) //nolint:errcheck

			rows := make([][]string, 0)
			for _, shelf := range result.Shelves {
				for _, card := range shelf.Cards {
					rows = append(rows, []string{
						strconv.Itoa(shelf.Shelf),
						strconv.Itoa(card.Index),
						string(card.Variant),
						card.Label,
						card.Transform,
						strings.Join(card.Classes, " "),
					})
				}
			}
			return printListing(cmd, ctx.output(), listing{
				payload: result,
				headers: []string{"Shelf", "Index", "Variant", "Label", "Transform", "Classes"},
				rows:    rows,
				aligns:  []columnAlignment{alignRight, alignRight},
				empty:   "No cards in the requested window",
			})
		},
	}
	flags := previewCmd.Flags()
	flags.StringVarP(&libraryFlag, "library", "l", "", "Library id or name")
	flags.StringVar(&req.EntityName, "entity", bookshelf.EntityItems, "Entity type: items, series, collections or playlists")
	flags.StringVar(&req.OrderBy, "sort", "", "Sort key for items")
	flags.BoolVar(&req.Desc, "desc", false, "Sort descending")
	flags.StringVar(&req.FilterBy, "filter", "", "Item filter, for example series.<id>")
	flags.StringVar(&req.SeriesSortBy, "series-sort", "", "Series sort: name, addedAt or numBooks")
	flags.IntVar(&req.FirstShelf, "first", 0, "First shelf of the window")
	flags.IntVar(&req.LastShelf, "last", 1, "Last shelf of the window")
	flags.StringVar(&user, "user", "", "User id for playlist shelves")

	shelfCmd.AddCommand(previewCmd)
	return shelfCmd
}
