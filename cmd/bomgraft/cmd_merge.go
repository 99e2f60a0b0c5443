package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bomgraft/internal/artifact"
	"bomgraft/internal/core"
	"bomgraft/pkg/domain"
)

type mergeOptions struct {
	priorFile string
	priorKey  string
	latest    bool
	job       string
	revision  int
	seal      bool
	out       string
}

type sealOutput struct {
	Revision domain.Revision `json:"revision"`
	Warnings []string        `json:"warnings"`
	Out      string          `json:"out,omitempty"`
}

type exportOutput struct {
	Metadata artifact.Metadata `json:"metadata"`
	Warnings []string          `json:"warnings"`
	Out      string            `json:"out"`
}

func newMergeCmd(a *app) *cobra.Command {
	var opts mergeOptions
	cmd := &cobra.Command{
		Use:   "merge <rows.json>",
		Short: "Graft WIP assemblies from the prior revision onto a new export",
		Long: `Merge validates the export, then replaces every work-in-progress assembly
with its released subtree from the prior revision. The prior comes from a
file (--prior-file), a stored artifact (--prior-key) or the job's latest
sealed revision (--latest). Without --seal or --out the merge result is
printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, a, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.priorFile, "prior-file", "", "prior artifact on disk")
	f.StringVar(&opts.priorKey, "prior-key", "", "prior artifact key in blob storage")
	f.BoolVar(&opts.latest, "latest", false, "use the latest sealed revision of the job as prior")
	f.StringVar(&opts.job, "job", "", "job number (default derived from the prior or the top-level part number)")
	f.IntVar(&opts.revision, "revision", 0, "revision number (default prior revision + 1)")
	f.BoolVar(&opts.seal, "seal", false, "store the artifact and record it in the ledger")
	f.StringVar(&opts.out, "out", "", "also write the artifact to this file")
	cmd.MarkFlagsMutuallyExclusive("prior-file", "prior-key", "latest")
	return cmd
}

func runMerge(cmd *cobra.Command, a *app, opts mergeOptions, rowsPath string) error {
	ctx := cmd.Context()
	tree, err := readRows(rowsPath)
	if err != nil {
		return err
	}
	svc, err := a.service(ctx, opts.seal || opts.priorKey != "" || opts.latest)
	if err != nil {
		return err
	}

	var (
		prior     *artifact.Artifact
		priorName string
	)
	switch {
	case opts.priorFile != "":
		prior, err = readArtifact(opts.priorFile)
		priorName = filepath.Base(opts.priorFile)
	case opts.priorKey != "":
		prior, _, err = svc.Open(ctx, opts.priorKey, artifact.Expectations{ExpectedGA: tree.Info.PartNumber})
		priorName = filepath.Base(opts.priorKey)
	case opts.latest:
		job := opts.job
		if job == "" {
			job = artifact.SuggestJobNumber(nil, tree.Info.PartNumber)
		}
		prior, err = svc.LatestPrior(ctx, job)
		if prior != nil {
			priorName = artifact.Filename(prior.Metadata.JobNumber, prior.Metadata.Revision, prior.Metadata.GeneratedDate)
		}
	}
	if err != nil {
		return fmt.Errorf("load prior: %w", err)
	}

	res, err := svc.Merge(ctx, tree, prior)
	if err != nil {
		return err
	}
	if !opts.seal && opts.out == "" {
		return writeJSON(cmd.OutOrStdout(), res)
	}

	req := core.SealRequest{
		Merge:       res,
		RootInfo:    tree.Info,
		JobNumber:   opts.job,
		SourceFiles: artifact.SourceFiles{Current: filepath.Base(rowsPath), Prior: priorName},
		Prior:       prior,
	}
	if cmd.Flags().Changed("revision") {
		req.Revision = &opts.revision
	}

	var art *artifact.Artifact
	var rev domain.Revision
	if opts.seal {
		art, rev, err = svc.Seal(ctx, req)
	} else {
		art, err = svc.Export(req)
	}
	if err != nil {
		return err
	}
	if opts.out != "" {
		data, err := artifact.Marshal(art)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.out, data, 0o644); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
	}
	if opts.seal {
		return writeJSON(cmd.OutOrStdout(), sealOutput{Revision: rev, Warnings: res.Warnings, Out: opts.out})
	}
	return writeJSON(cmd.OutOrStdout(), exportOutput{Metadata: art.Metadata, Warnings: res.Warnings, Out: opts.out})
}
