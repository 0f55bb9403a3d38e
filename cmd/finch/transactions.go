package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finchwallet/finch/internal/cli"
	"github.com/finchwallet/finch/internal/engine"
	"github.com/finchwallet/finch/internal/model"
	"github.com/finchwallet/finch/internal/service"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Record and inspect transactions",
	}

	cmd.AddCommand(txAddCmd())
	cmd.AddCommand(txListCmd())

	return cmd
}

func txAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Long: `Record an income, expense, or transfer. The account balance (and the
transfer target's, for transfers) is updated in the same step.`,
		RunE: runTxAdd,
	}

	cmd.Flags().String("kind", "EXPENSE", "Transaction kind (INCOME, EXPENSE, TRANSFER)")
	cmd.Flags().Int64("account", 0, "Source account ID")
	cmd.Flags().Int64("to", 0, "Transfer target account ID")
	cmd.Flags().Int64("category", 0, "Category ID")
	cmd.Flags().String("amount", "", "Amount (positive decimal)")
	cmd.Flags().String("date", "", "Transaction date (YYYY-MM-DD, default today)")
	cmd.Flags().String("note", "", "Description")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runTxAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	kind, _ := cmd.Flags().GetString("kind")
	accountID, _ := cmd.Flags().GetInt64("account")
	toID, _ := cmd.Flags().GetInt64("to")
	categoryID, _ := cmd.Flags().GetInt64("category")
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

	input := engine.PostInput{
		Kind:              model.TransactionKind(strings.ToUpper(kind)),
		AccountID:         accountID,
		TransferAccountID: optionalID(toID),
		CategoryID:        optionalID(categoryID),
		Amount:            amount,
		Description:       note,
	}
	if date != nil {
		input.Date = *date
	}

	txn, err := engine.NewPoster(store).Post(ctx, currentUserID(), input)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Posted %s of %s on account #%d",
		txn.Kind, txn.Amount.StringFixed(2), txn.AccountID)))
	return nil
}

func txListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transactions",
		RunE:  runTxList,
	}

	cmd.Flags().Int64("account", 0, "Only transactions touching this account")
	cmd.Flags().Int("limit", 25, "Maximum rows to show")

	return cmd
}

func runTxList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	accountID, _ := cmd.Flags().GetInt64("account")
	limit, _ := cmd.Flags().GetInt("limit")

	filter := service.TransactionFilter{
		AccountID: optionalID(accountID),
		Limit:     limit,
	}
	txns, err := store.ListTransactions(ctx, currentUserID(), filter)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Transactions"))
	for _, txn := range txns {
		marker := ""
		if txn.RecurringRuleID != nil {
			marker = cli.SubtleStyle.Render(fmt.Sprintf(" (rule #%d)", *txn.RecurringRuleID))
		}
		fmt.Printf("%s  %-8s %10s  #%-4d %s%s\n",
			txn.Date.Format("2006-01-02"), txn.Kind,
			txn.Amount.StringFixed(2), txn.AccountID, txn.Description, marker)
	}
	return nil
}
