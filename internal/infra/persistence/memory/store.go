// Package memory implements the revision ledger in process memory. The SQL
// backends hydrate one of these on open and keep it in step with every write.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bomgraft/pkg/domain"
)

var _ domain.Ledger = (*Store)(nil)

// Store keeps revisions grouped by job, ordered by revision number.
type Store struct {
	mu    sync.RWMutex
	byJob map[string][]domain.Revision
}

// NewStore returns an empty ledger.
func NewStore() *Store {
	return &Store{byJob: make(map[string][]domain.Revision)}
}

// Prepare normalizes rev for recording: it assigns an ID when missing and
// checks required fields and uniqueness. It does not modify the ledger.
func (s *Store) Prepare(rev domain.Revision) (domain.Revision, error) {
	rev, err := domain.NormalizeRevision(rev)
	if err != nil {
		return domain.Revision{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.indexOf(rev.JobNumber, rev.Revision) >= 0 {
		return domain.Revision{}, domain.RevisionExistsError(rev.JobNumber, rev.Revision)
	}
	return rev, nil
}

// Record adds a revision.
func (s *Store) Record(ctx context.Context, rev domain.Revision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepared, err := s.Prepare(rev)
	if err != nil {
		return err
	}
	return s.Insert(prepared)
}

// Insert stores an already prepared revision, rejecting duplicates.
func (s *Store) Insert(rev domain.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(rev.JobNumber, rev.Revision) >= 0 {
		return domain.RevisionExistsError(rev.JobNumber, rev.Revision)
	}
	revs := append(s.byJob[rev.JobNumber], cloneRevision(rev))
	sort.SliceStable(revs, func(i, j int) bool { return revs[i].Revision < revs[j].Revision })
	s.byJob[rev.JobNumber] = revs
	return nil
}

// Latest returns the highest revision recorded for a job.
func (s *Store) Latest(ctx context.Context, jobNumber string) (domain.Revision, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Revision{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	revs := s.byJob[strings.TrimSpace(jobNumber)]
	if len(revs) == 0 {
		return domain.Revision{}, false, nil
	}
	return cloneRevision(revs[len(revs)-1]), true, nil
}

// List returns every revision of a job in ascending order.
func (s *Store) List(ctx context.Context, jobNumber string) ([]domain.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	revs := s.byJob[strings.TrimSpace(jobNumber)]
	out := make([]domain.Revision, 0, len(revs))
	for _, rev := range revs {
		out = append(out, cloneRevision(rev))
	}
	return out, nil
}

// Snapshot returns every recorded revision, grouped by job in job order.
func (s *Store) Snapshot() []domain.Revision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]string, 0, len(s.byJob))
	for job := range s.byJob {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)
	var out []domain.Revision
	for _, job := range jobs {
		for _, rev := range s.byJob[job] {
			out = append(out, cloneRevision(rev))
		}
	}
	return out
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) indexOf(jobNumber string, revision int) int {
	for i, rev := range s.byJob[jobNumber] {
		if rev.Revision == revision {
			return i
		}
	}
	return -1
}

func cloneRevision(rev domain.Revision) domain.Revision {
	if rev.Warnings != nil {
		rev.Warnings = append([]string(nil), rev.Warnings...)
	}
	return rev
}
