// Package artifact seals merged BOM trees into hash-verified JSON snapshots
// and reads them back for the next merge cycle.
package artifact

import (
	"fmt"
	"time"

	"bomgraft/pkg/domain"
)

// FormatVersion is the artifact schema version written by Export.
const FormatVersion = "1.0"

// ContentType is the media type used when storing artifacts.
const ContentType = "application/json"

// SourceFiles names the inputs a merge was produced from.
type SourceFiles struct {
	Current string `json:"current,omitempty"`
	Prior   string `json:"prior,omitempty"`
}

// Metadata describes a sealed artifact.
type Metadata struct {
	Revision      int                 `json:"revision"`
	JobNumber     string              `json:"jobNumber"`
	GeneratedDate time.Time           `json:"generatedDate"`
	Hash          string              `json:"hash"`
	SourceFiles   SourceFiles         `json:"sourceFiles"`
	Summary       domain.MergeSummary `json:"summary"`
}

// Artifact is a sealed, published BOM snapshot.
type Artifact struct {
	FormatVersion string       `json:"formatVersion"`
	Metadata      Metadata     `json:"metadata"`
	BOM           *domain.Node `json:"bom"`

	// Set by Import. sealedHash covers the bom bytes as read; strippedChanges
	// holds the _changes removed from each node, keyed by child-index path,
	// and importedTreeHash is the hash of the parsed tree with them restored.
	sealedHash       string
	importedTreeHash string
	strippedChanges  map[string][]domain.FieldChange
}

// RootPartNumber returns the part number of the sealed top-level assembly.
func (a *Artifact) RootPartNumber() string {
	if a == nil || a.BOM == nil {
		return ""
	}
	return a.BOM.PartNumber
}

// FormatError reports an artifact document or export request that does not
// have the required shape.
type FormatError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "invalid artifact"
	if e.Field != "" {
		msg += " field " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// IntegrityError reports an artifact whose stored hash does not match its
// content. Such an artifact must never be used as a merge input.
type IntegrityError struct {
	Stored   string
	Computed string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("artifact hash mismatch: stored %s, computed %s", e.Stored, e.Computed)
}
