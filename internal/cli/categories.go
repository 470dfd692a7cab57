// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewCategoriesCommand creates the categories command group.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List and change categories",
	}

	cmd.AddCommand(newCategoriesListCommand(rootOpts))
	cmd.AddCommand(newCategoriesAddCommand(rootOpts))
	cmd.AddCommand(newCategoriesRenameCommand(rootOpts))
	cmd.AddCommand(newCategoriesDeleteCommand(rootOpts))
	cmd.AddCommand(newCategoriesReorderCommand(rootOpts))

	return cmd
}

func newCategoriesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app) error {
				cats, err := a.engine.List(cmd.Context())
				if err != nil {
					return err
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(cats, func(w io.Writer) { writeCategories(w, cats) })
			})
		},
	}
}

func newCategoriesAddCommand(rootOpts *RootOptions) *cobra.Command {
	var icon string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category; its id is derived from the name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app) error {
				id, err := a.engine.Add(cmd.Context(), args[0], icon)
				if err != nil {
					return err
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(map[string]string{"id": id}, func(w io.Writer) {
					fmt.Fprintf(w, "added %s\n", id)
				})
			})
		},
	}
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	return cmd
}

func newCategoriesRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Change the display name of a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app) error {
				if err := a.engine.Rename(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(map[string]string{"id": args[0], "name": args[1]}, func(w io.Writer) {
					fmt.Fprintf(w, "renamed %s\n", args[0])
				})
			})
		},
	}
}

func newCategoriesDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category and move its posts to the fallback category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app) error {
				if err := a.engine.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(map[string]string{"id": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %s\n", args[0])
				})
			})
		},
	}
}

func newCategoriesReorderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Set the display order; every current id must be listed once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app) error {
				if err := a.engine.Reorder(cmd.Context(), args); err != nil {
					return err
				}
				cats, err := a.engine.List(cmd.Context())
				if err != nil {
					return err
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(cats, func(w io.Writer) { writeCategories(w, cats) })
			})
		},
	}
}
