package main

import (
	"github.com/spf13/cobra"

	"bomgraft/internal/core"
)

type validateOutput struct {
	Valid      bool             `json:"valid"`
	Violations []core.Violation `json:"violations"`
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rows.json>",
		Short: "Check an export against the BOM rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := readRows(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			res := svc.Validate(cmd.Context(), tree.Root)
			out := validateOutput{Valid: res.Valid(), Violations: res.Violations}
			if out.Violations == nil {
				out.Violations = []core.Violation{}
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !out.Valid {
				return errCheckFailed
			}
			return nil
		},
	}
}
