// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store migrations and create the system categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app) error {
				if err := a.prepare(cmd.Context()); err != nil {
					return err
				}
				cats, err := a.engine.List(cmd.Context())
				if err != nil {
					return err
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Success(map[string]any{
					"store":      a.cfg.StoreDriver,
					"categories": len(cats),
				}, func(w io.Writer) {
					fmt.Fprintf(w, "%s store ready, %d categories\n", a.cfg.StoreDriver, len(cats))
				})
			})
		},
	}
}
