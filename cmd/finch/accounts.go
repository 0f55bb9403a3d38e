package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finchwallet/finch/internal/cli"
	"github.com/finchwallet/finch/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage money accounts",
	}

	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(accountsListCmd())

	return cmd
}

func accountsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountsAdd,
	}

	cmd.Flags().String("group", "", "Account group (e.g. cash, bank)")
	cmd.Flags().String("balance", "0", "Opening balance")

	return cmd
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	group, _ := cmd.Flags().GetString("group")
	balanceStr, _ := cmd.Flags().GetString("balance")
	balance, err := parseAmount(balanceStr)
	if err != nil {
		return err
	}

	account := &model.Account{
		UserID:  currentUserID(),
		Name:    args[0],
		Group:   group,
		Balance: balance,
	}
	if err := store.CreateAccount(ctx, account); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created account %q (#%d)", account.Name, account.ID)))
	return nil
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts and balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.ListAccounts(ctx, currentUserID())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Accounts"))
			if len(accounts) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No accounts yet. Add one with 'finch accounts add'."))
				return nil
			}

			total := decimal.Zero
			for _, account := range accounts {
				group := ""
				if account.Group != "" {
					group = cli.SubtleStyle.Render(" [" + account.Group + "]")
				}
				fmt.Printf("#%-4d %-24s%s %s\n", account.ID, account.Name, group, cli.FormatAmount(account.Balance))
				total = total.Add(account.Balance)
			}
			fmt.Printf("%-30s %s\n", "total", cli.FormatAmount(total))
			return nil
		},
	}
}
