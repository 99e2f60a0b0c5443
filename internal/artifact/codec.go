package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bomgraft/pkg/domain"
)

// JobNumberPattern is the job number format downstream tooling expects.
var JobNumberPattern = regexp.MustCompile(`^1J\d{6}$`)

var exportValidate *validator.Validate

func init() {
	exportValidate = validator.New()
	if err := exportValidate.RegisterValidation("jobnumber", func(fl validator.FieldLevel) bool {
		return JobNumberPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// ExportRequest carries everything needed to seal a merged tree.
type ExportRequest struct {
	Tree        *domain.Node        `validate:"required"`
	Summary     domain.MergeSummary `validate:"-"`
	Revision    int                 `validate:"min=0"`
	JobNumber   string              `validate:"required,jobnumber"`
	SourceFiles SourceFiles         `validate:"-"`
	Date        time.Time           `validate:"-"`
}

// Export seals a merged tree into an artifact whose metadata hash covers the
// tree as given, annotations included. The artifact references req.Tree.
func Export(req ExportRequest) (*Artifact, error) {
	if err := exportValidate.Struct(req); err != nil {
		return nil, exportRequestError(err)
	}
	hash, err := Hash(req.Tree)
	if err != nil {
		return nil, err
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	return &Artifact{
		FormatVersion: FormatVersion,
		Metadata: Metadata{
			Revision:      req.Revision,
			JobNumber:     req.JobNumber,
			GeneratedDate: date.UTC(),
			Hash:          hash,
			SourceFiles:   req.SourceFiles,
			Summary:       req.Summary,
		},
		BOM: req.Tree,
	}, nil
}

func exportRequestError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fmt.Sprintf("failed %q validation", fe.Tag())
		if fe.Tag() == "jobnumber" {
			reason = fmt.Sprintf("job number %q must match %s", fe.Value(), JobNumberPattern)
		}
		return &FormatError{Field: fe.Field(), Reason: reason}
	}
	return &FormatError{Reason: "invalid export request", Err: err}
}

// Marshal renders an artifact as indented JSON.
func Marshal(a *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Import parses an artifact document. Field-change annotations left over
// from the merge that produced it are removed; provenance sources are kept.
func Import(data []byte) (*Artifact, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &FormatError{Reason: "not a JSON object", Err: err}
	}
	for _, field := range []string{"formatVersion", "metadata", "bom"} {
		raw, ok := top[field]
		if !ok || isNull(raw) {
			return nil, &FormatError{Field: field, Reason: "missing"}
		}
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &FormatError{Reason: "malformed document", Err: err}
	}
	canon, err := CanonicalJSON(top["bom"])
	if err != nil {
		return nil, &FormatError{Field: "bom", Reason: "malformed tree", Err: err}
	}
	a.sealedHash = hashBytes(canon)
	domain.EnsureChildren(a.BOM)
	a.strippedChanges = collectChanges(a.BOM)
	domain.StripChanges(a.BOM)
	a.importedTreeHash, err = a.annotatedHash()
	if err != nil {
		return nil, &FormatError{Field: "bom", Reason: "malformed tree", Err: err}
	}
	return &a, nil
}

// collectChanges records every node's _changes by child-index path.
func collectChanges(root *domain.Node) map[string][]domain.FieldChange {
	out := map[string][]domain.FieldChange{}
	walkIndexed(root, "", func(n *domain.Node, path string) {
		if changes := n.FieldChanges(); len(changes) > 0 {
			out[path] = append([]domain.FieldChange(nil), changes...)
		}
	})
	return out
}

// annotatedHash hashes a copy of the current bom with the changes stripped
// by Import put back, so it is comparable with the sealed form.
func (a *Artifact) annotatedHash() (string, error) {
	tree := a.BOM.Clone()
	walkIndexed(tree, "", func(n *domain.Node, path string) {
		changes, ok := a.strippedChanges[path]
		if !ok {
			return
		}
		if n.Provenance == nil {
			n.Provenance = &domain.Provenance{}
		}
		n.Provenance.Changes = append([]domain.FieldChange(nil), changes...)
	})
	return Hash(tree)
}

func walkIndexed(n *domain.Node, path string, fn func(*domain.Node, string)) {
	if n == nil {
		return
	}
	fn(n, path)
	for i, child := range n.Children {
		walkIndexed(child, path+"/"+strconv.Itoa(i), fn)
	}
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// Filename is the conventional file name for a sealed revision, for example
// "1J100001-IFP REV2 (Mar 4, 2025).json".
func Filename(jobNumber string, revision int, date time.Time) string {
	return fmt.Sprintf("%s-IFP REV%d (%s).json", jobNumber, revision, date.Format("Jan 2, 2006"))
}

// SuggestRevision returns the revision the next export should carry.
func SuggestRevision(prior *Artifact) int {
	if prior == nil {
		return 0
	}
	return prior.Metadata.Revision + 1
}

// SuggestJobNumber returns the job number the next export should carry. The
// first revision derives it from the top-level part number.
func SuggestJobNumber(prior *Artifact, rootPartNumber string) string {
	if prior == nil {
		return "1J" + rootPartNumber
	}
	return prior.Metadata.JobNumber
}
