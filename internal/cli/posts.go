// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"deskboard/internal/fault"
	"deskboard/internal/models"
)

// NewPostsCommand creates the posts command group.
func NewPostsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspect posts",
	}

	cmd.AddCommand(newPostsListCommand(rootOpts))
	cmd.AddCommand(newPostsGetCommand(rootOpts))

	return cmd
}

func newPostsListCommand(rootOpts *RootOptions) *cobra.Command {
	var category, tag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if category != "" && tag != "" {
				return fmt.Errorf("use --category or --tag, not both")
			}
			return withApp(rootOpts, func(a *app) error {
				var (
					list []models.Post
					err  error
				)
				if tag != "" {
					list, err = a.reader.FetchByTag(cmd.Context(), tag)
				} else {
					list, err = a.reader.FetchByCategory(cmd.Context(), category)
				}
				if err != nil {
					return err
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(list, func(w io.Writer) { writePosts(w, list) })
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only posts in this category")
	cmd.Flags().StringVar(&tag, "tag", "", "only posts with this tag")
	return cmd
}

func newPostsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app) error {
				post, err := a.reader.FetchByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if post == nil {
					return fault.ErrPostNotFound
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(post, func(w io.Writer) { writePost(w, post) })
			})
		},
	}
}
