package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finchwallet/finch/internal/cli"
	"github.com/finchwallet/finch/internal/lending"
	"github.com/finchwallet/finch/internal/model"
)

func lendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lend",
		Short: "Track money lent to and borrowed from people",
	}

	cmd.AddCommand(lendAddCmd())
	cmd.AddCommand(lendListCmd())
	cmd.AddCommand(lendPayCmd())
	cmd.AddCommand(lendSettleCmd())
	cmd.AddCommand(lendDeleteCmd())

	return cmd
}

func lendAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <counterparty>",
		Short: "Record a new lend or debt",
		Args:  cobra.ExactArgs(1),
		RunE:  runLendAdd,
	}

	cmd.Flags().String("kind", "LEND", "Entry kind (LEND, DEBT)")
	cmd.Flags().Int64("account", 0, "Account the money flows through")
	cmd.Flags().String("amount", "", "Principal amount")
	cmd.Flags().String("due", "", "Optional due date (YYYY-MM-DD)")
	cmd.Flags().String("note", "", "Notes")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runLendAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	kind, _ := cmd.Flags().GetString("kind")
	accountID, _ := cmd.Flags().GetInt64("account")
	amountStr, _ := cmd.Flags().GetString("amount")
	dueStr, _ := cmd.Flags().GetString("due")
	note, _ := cmd.Flags().GetString("note")

	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}
	due, err := parseDateFlag(dueStr)
	if err != nil {
		return err
	}

	entry, err := lending.NewTracker(store).CreateEntry(ctx, currentUserID(), lending.EntryInput{
		Kind:         model.LendDebtKind(strings.ToUpper(kind)),
		Counterparty: args[0],
		AccountID:    accountID,
		Amount:       amount,
		DueDate:      due,
		Notes:        note,
	})
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s of %s with %s (#%d)",
		entry.Kind, entry.Amount.StringFixed(2), entry.Counterparty, entry.ID)))
	return nil
}

func lendListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List lend/debt entries with outstanding amounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tracker := lending.NewTracker(store)
			entries, err := store.ListLendDebts(ctx, currentUserID())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Lend / debt"))
			for _, entry := range entries {
				outstanding, status, err := tracker.Outstanding(ctx, currentUserID(), entry.ID)
				if err != nil {
					return err
				}
				statusText := cli.SuccessStyle.Render(string(status))
				if status == model.LendDebtOpen {
					statusText = cli.WarningStyle.Render(string(status))
				}
				fmt.Printf("#%-4d %-5s %-20s principal %10s outstanding %10s  %s\n",
					entry.ID, entry.Kind, entry.Counterparty,
					entry.Amount.StringFixed(2), outstanding.StringFixed(2), statusText)
			}
			return nil
		},
	}
}

func lendPayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay <entry-id>",
		Short: "Record a payment against an entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runLendPay,
	}

	cmd.Flags().Int64("account", 0, "Account the payment flows through (default: entry account)")
	cmd.Flags().String("amount", "", "Payment amount")
	cmd.Flags().String("date", "", "Payment date (YYYY-MM-DD, default today)")
	cmd.Flags().String("note", "", "Notes")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runLendPay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	entryID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry ID %q: %w", args[0], err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	accountID, _ := cmd.Flags().GetInt64("account")
	amountStr, _ := cmd.Flags().GetString("amount")
	dateStr, _ := cmd.Flags().GetString("date")
	note, _ := cmd.Flags().GetString("note")

	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}
	date, err := parseDateFlag(dateStr)
	if err != nil {
		return err
	}

	userID := currentUserID()
	tracker := lending.NewTracker(store)

	if accountID == 0 {
		entry, err := store.GetLendDebt(ctx, userID, entryID)
		if err != nil {
			return err
		}
		accountID = entry.AccountID
	}

	input := lending.PaymentInput{
		AccountID: accountID,
		Amount:    amount,
		Date:      time.Now(),
		Notes:     note,
	}
	if date != nil {
		input.Date = *date
	}

	if _, err := tracker.AddPayment(ctx, userID, entryID, input); err != nil {
		return err
	}

	outstanding, status, err := tracker.Outstanding(ctx, userID, entryID)
	if err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Payment recorded; outstanding %s, status %s",
		outstanding.StringFixed(2), status)))
	return nil
}

func lendSettleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle <entry-id>",
		Short: "Settle an entry by paying off the full outstanding amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			entryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry ID %q: %w", args[0], err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			payment, err := lending.NewTracker(store).MarkSettled(ctx, currentUserID(), entryID, time.Now())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Settled entry #%d with a payment of %s",
				entryID, payment.Amount.StringFixed(2))))
			return nil
		},
	}
}

func lendDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an entry, reversing all of its balance effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			entryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry ID %q: %w", args[0], err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := lending.NewTracker(store).DeleteEntry(ctx, currentUserID(), entryID); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted entry #%d", entryID)))
			return nil
		},
	}
}
