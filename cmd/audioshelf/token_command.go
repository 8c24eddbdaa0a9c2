package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"audioshelf/internal/auth"
)

type issuedToken struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "API token utilities",
	}
	tokenCmd.AddCommand(&cobra.Command{
		Use:   "issue <user-id>",
		Short: "Issue a bearer token for a configured user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			token, expires, err := auth.New(cfg).Issue(args[0])
			if err != nil {
				return err
			}
			issued := issuedToken{UserID: args[0], Token: token, ExpiresAt: expires.UTC()}
			format := ctx.output()
			if format != formatTable {
				return printListing(cmd, format, listing{payload: issued})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Expires %s (%s)\n", issued.ExpiresAt.Format(time.RFC3339), humanize.Time(expires))
			return nil
		},
	})
	return tokenCmd
}
