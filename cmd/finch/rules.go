package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finchwallet/finch/internal/cli"
	"github.com/finchwallet/finch/internal/engine"
	"github.com/finchwallet/finch/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage recurring transaction rules",
	}

	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesStatusCmd("pause", "Pause a rule"))
	cmd.AddCommand(rulesStatusCmd("resume", "Resume a paused rule"))
	cmd.AddCommand(rulesStatusCmd("stop", "Stop a rule permanently"))

	return cmd
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a recurring rule",
		RunE:  runRulesAdd,
	}

	cmd.Flags().String("kind", "EXPENSE", "Transaction kind (INCOME, EXPENSE, TRANSFER)")
	cmd.Flags().Int64("account", 0, "Source account ID")
	cmd.Flags().Int64("to", 0, "Transfer target account ID")
	cmd.Flags().Int64("category", 0, "Category ID")
	cmd.Flags().String("amount", "", "Amount (positive decimal)")
	cmd.Flags().String("frequency", "", "DAILY, WEEKLY, MONTHLY_START, MONTHLY_END, or YEARLY")
	cmd.Flags().String("start", "", "First occurrence date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Optional last occurrence date (YYYY-MM-DD)")
	cmd.Flags().String("note", "", "Description for generated transactions")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("frequency")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
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
	frequency, _ := cmd.Flags().GetString("frequency")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	note, _ := cmd.Flags().GetString("note")

	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}
	start, err := parseDateFlag(startStr)
	if err != nil {
		return err
	}
	if start == nil {
		return fmt.Errorf("start date is required")
	}
	end, err := parseDateFlag(endStr)
	if err != nil {
		return err
	}

	rule, err := engine.NewRules(store).Create(ctx, currentUserID(), engine.RuleInput{
		Kind:              model.TransactionKind(strings.ToUpper(kind)),
		AccountID:         accountID,
		TransferAccountID: optionalID(toID),
		CategoryID:        optionalID(categoryID),
		Amount:            amount,
		Frequency:         model.Frequency(strings.ToUpper(frequency)),
		StartDate:         *start,
		EndDate:           end,
		Description:       note,
	})
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s rule #%d, first occurrence %s",
		rule.Frequency, rule.ID, rule.NextOccurrence.Format("2006-01-02"))))
	return nil
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListRules(ctx, currentUserID())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Recurring rules"))
			for _, rule := range rules {
				status := cli.SubtleStyle.Render(string(rule.Status))
				if rule.Status == model.RuleActive {
					status = cli.SuccessStyle.Render(string(rule.Status))
				}
				fmt.Printf("#%-4d %-8s %-13s %10s  account #%-4d next %s  %s\n",
					rule.ID, rule.Kind, rule.Frequency, rule.Amount.StringFixed(2),
					rule.AccountID, rule.NextOccurrence.Format("2006-01-02"), status)
			}
			return nil
		},
	}
}

func rulesStatusCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ruleID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID %q: %w", args[0], err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules := engine.NewRules(store)
			var rule *model.RecurringRule
			switch verb {
			case "pause":
				rule, err = rules.Pause(ctx, currentUserID(), ruleID)
			case "resume":
				rule, err = rules.Resume(ctx, currentUserID(), ruleID)
			case "stop":
				rule, err = rules.Stop(ctx, currentUserID(), ruleID)
			}
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule #%d is now %s", rule.ID, rule.Status)))
			return nil
		},
	}
}
