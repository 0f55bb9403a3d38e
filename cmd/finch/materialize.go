package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finchwallet/finch/internal/cli"
	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/engine"
	"github.com/finchwallet/finch/internal/service"
)

func materializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Post due recurring transactions",
		Long: `Walk every active recurring rule and post the transactions due inside
the given window. The window never extends past today in your time zone,
and re-running the command is always safe: already-posted occurrences are
skipped.`,
		RunE: runMaterialize,
	}

	cmd.Flags().String("from", "", "Window start (YYYY-MM-DD, default 30 days ago)")
	cmd.Flags().String("to", "", "Window end (YYYY-MM-DD, default today)")

	return cmd
}

func runMaterialize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if parsed, err := parseDateFlag(fromStr); err != nil {
		return err
	} else if parsed != nil {
		from = *parsed
	}
	if parsed, err := parseDateFlag(toStr); err != nil {
		return err
	} else if parsed != nil {
		to = *parsed
	}

	materializer := engine.NewMaterializer(store)

	var result *engine.Result
	// Materialization is idempotent, so replaying the whole call on a
	// transient storage failure cannot double-post.
	err = common.WithRetry(ctx, func() error {
		var opErr error
		result, opErr = materializer.Materialize(ctx, currentUserID(), from, to)
		return opErr
	}, service.RetryOptions{MaxAttempts: 3})
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Generated %d transaction(s)", result.Generated)))
	for _, ruleErr := range result.RuleErrors {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("rule #%d skipped: %v", ruleErr.RuleID, ruleErr.Err)))
	}
	return nil
}
