package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finchwallet/finch/internal/calendar"
	"github.com/finchwallet/finch/internal/cli"
)

func timezoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timezone [iana-name]",
		Short: "Show or set the ledger time zone",
		Long: `Recurring transactions are dated by calendar days in this time zone.
With no argument, prints the current setting.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			userID := currentUserID()

			if len(args) == 0 {
				user, err := store.GetUser(ctx, userID)
				if err != nil {
					return err
				}
				tz := user.Timezone
				if tz == "" {
					tz = "UTC"
				}
				fmt.Println(cli.FormatTitle("Time zone"))
				fmt.Println(tz)
				return nil
			}

			// Invalid identifiers fail here, before anything is stored.
			if _, err := calendar.LoadZone(args[0]); err != nil {
				return err
			}
			if err := store.SetUserTimezone(ctx, userID, args[0]); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Time zone set to %s", args[0])))
			return nil
		},
	}
}
