package artifact

import "fmt"

// Expectations are optional cross-checks applied when validating an artifact
// that is about to become the prior input of a merge.
type Expectations struct {
	ExpectedGA       string
	ExpectedRevision *int
}

// Report is the outcome of Validate. Only an integrity failure makes it
// invalid; everything else is a warning.
type Report struct {
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	ComputedHash string   `json:"computedHash"`

	err error
}

// Err returns the *IntegrityError behind an invalid report, or nil.
func (r Report) Err() error { return r.err }

// Validate recomputes the artifact hash and cross-checks identity and
// revision sequencing. The hash is always recomputed from the current tree;
// for an imported artifact the _changes stripped by Import are restored first.
func Validate(a *Artifact, exp Expectations) Report {
	rep := Report{Valid: true, Errors: []string{}, Warnings: []string{}}
	if a == nil || a.BOM == nil {
		rep.Valid = false
		rep.Errors = append(rep.Errors, "artifact has no bom")
		rep.err = &FormatError{Field: "bom", Reason: "missing"}
		return rep
	}

	var computed string
	var err error
	if a.sealedHash != "" {
		computed, err = a.annotatedHash()
		// An untouched imported tree is judged by the bytes that were sealed.
		if err == nil && computed == a.importedTreeHash {
			computed = a.sealedHash
		}
	} else {
		computed, err = Hash(a.BOM)
	}
	if err != nil {
		rep.Valid = false
		rep.Errors = append(rep.Errors, err.Error())
		rep.err = err
		return rep
	}
	rep.ComputedHash = computed
	if computed != a.Metadata.Hash {
		ierr := &IntegrityError{Stored: a.Metadata.Hash, Computed: computed}
		rep.Valid = false
		rep.Errors = append(rep.Errors, ierr.Error())
		rep.err = ierr
	}

	if a.FormatVersion != FormatVersion {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("artifact format version %q is not %q", a.FormatVersion, FormatVersion))
	}
	if exp.ExpectedGA != "" && exp.ExpectedGA != a.BOM.PartNumber {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("artifact top-level assembly %s does not match expected %s", a.BOM.PartNumber, exp.ExpectedGA))
	}
	if exp.ExpectedRevision != nil && *exp.ExpectedRevision > a.Metadata.Revision+1 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("revision gap: artifact is REV%d but REV%d is being prepared", a.Metadata.Revision, *exp.ExpectedRevision))
	}
	return rep
}
