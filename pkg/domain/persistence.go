package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MergeSummary counts what a merge did with each assembly it visited.
type MergeSummary struct {
	PassedThrough int `json:"passedThrough"`
	Grafted       int `json:"grafted"`
	Placeholders  int `json:"placeholders"`
}

// Revision is the ledger record of one sealed artifact.
type Revision struct {
	ID             string       `json:"id"`
	JobNumber      string       `json:"jobNumber"`
	Revision       int          `json:"revision"`
	Hash           string       `json:"hash"`
	BlobKey        string       `json:"blobKey"`
	RootPartNumber string       `json:"rootPartNumber"`
	GeneratedDate  time.Time    `json:"generatedDate"`
	Summary        MergeSummary `json:"summary"`
	Warnings       []string     `json:"warnings,omitempty"`
}

// Ledger records which revisions of a job have been sealed and where their
// artifacts live. Implementations must reject a second record for the same
// job and revision with ErrRevisionExists.
type Ledger interface {
	Record(ctx context.Context, rev Revision) error
	Latest(ctx context.Context, jobNumber string) (Revision, bool, error)
	List(ctx context.Context, jobNumber string) ([]Revision, error)
	Close() error
}

// ErrRevisionExists is returned when a job revision has already been sealed.
var ErrRevisionExists = errors.New("revision already recorded")

// RevisionExistsError wraps ErrRevisionExists with the offending identity.
func RevisionExistsError(jobNumber string, revision int) error {
	return fmt.Errorf("%s REV%d: %w", jobNumber, revision, ErrRevisionExists)
}

// NormalizeRevision trims the job number, checks the fields every ledger
// requires and assigns an ID when missing.
func NormalizeRevision(rev Revision) (Revision, error) {
	rev.JobNumber = strings.TrimSpace(rev.JobNumber)
	if rev.JobNumber == "" {
		return Revision{}, fmt.Errorf("revision record requires a job number")
	}
	if rev.Revision < 0 {
		return Revision{}, fmt.Errorf("%s: negative revision %d", rev.JobNumber, rev.Revision)
	}
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	return rev, nil
}
