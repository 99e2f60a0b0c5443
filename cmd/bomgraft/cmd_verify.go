package main

import (
	"github.com/spf13/cobra"

	"bomgraft/internal/artifact"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		expectGA       string
		expectRevision int
	)
	cmd := &cobra.Command{
		Use:   "verify <artifact.json>",
		Short: "Recompute an artifact's hash and cross-check its identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := readArtifact(args[0])
			if err != nil {
				return err
			}
			exp := artifact.Expectations{ExpectedGA: expectGA}
			if cmd.Flags().Changed("expect-revision") {
				exp.ExpectedRevision = &expectRevision
			}
			rep := artifact.Validate(art, exp)
			if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if !rep.Valid {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&expectGA, "expect-ga", "", "top-level assembly part number the artifact must carry")
	cmd.Flags().IntVar(&expectRevision, "expect-revision", 0, "revision about to be prepared from this artifact")
	return cmd
}
