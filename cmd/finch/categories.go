package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finchwallet/finch/internal/cli"
	"github.com/finchwallet/finch/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage transaction categories",
	}

	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesListCmd())

	return cmd
}

func categoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new category",
		Args:  cobra.ExactArgs(1),
		RunE:  runCategoriesAdd,
	}

	cmd.Flags().String("type", "expense", "Category type (income, expense)")

	return cmd
}

func runCategoriesAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	categoryType, _ := cmd.Flags().GetString("type")

	category := &model.Category{
		UserID: currentUserID(),
		Name:   args[0],
		Type:   model.CategoryType(categoryType),
	}
	if err := store.CreateCategory(ctx, category); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s category %q (#%d)", category.Type, category.Name, category.ID)))
	return nil
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.ListCategories(ctx, currentUserID())
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Categories"))
			for _, category := range categories {
				fmt.Printf("#%-4d %-24s %s\n", category.ID, category.Name, cli.SubtleStyle.Render(string(category.Type)))
			}
			return nil
		},
	}
}
