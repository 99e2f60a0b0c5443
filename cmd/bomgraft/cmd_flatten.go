package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bomgraft/internal/core"
)

func newFlattenCmd(a *app) *cobra.Command {
	var sorted bool
	cmd := &cobra.Command{
		Use:   "flatten <rows.json|artifact.json>",
		Short: "Aggregate a BOM into a quantity-rolled parts list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			items := svc.Flatten(cmd.Context(), in.Tree.Root, sorted)
			if items == nil {
				items = []core.LineItem{}
			}
			return writeJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().BoolVar(&sorted, "sort", false, "sort by component type, then description, then length")
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <old> <new>",
		Short: "List parts added, removed or changed between two BOMs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var oldIn, newIn input
			g, _ := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) {
				oldIn, err = readInput(args[0])
				return err
			})
			g.Go(func() (err error) {
				newIn, err = readInput(args[1])
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), svc.Compare(cmd.Context(), oldIn.Tree.Root, newIn.Tree.Root))
		},
	}
}
