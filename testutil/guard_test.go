package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred ImportPredicate
		in   string
		want bool
	}{
		{"internal", InternalImportForbidden, "bomgraft/internal/core", true},
		{"internal-pkg", InternalImportForbidden, "bomgraft/pkg/domain", false},
		{"infra", InfraImportForbidden, "bomgraft/internal/infra/blob/fs", true},
		{"infra-facade", InfraImportForbidden, "bomgraft/internal/blob", false},
		{"cmd", CommandImportForbidden, "bomgraft/cmd/bomgraft", true},
		{"anyof", AnyOf(InfraImportForbidden, CommandImportForbidden), "bomgraft/cmd/bomgraft", true},
		{"anyof-miss", AnyOf(InfraImportForbidden, CommandImportForbidden), "fmt", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("%s(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"bomgraft/internal/infra/blob/fs\"\n)\nvar _ = fmt.Sprint\nvar _ = fs.New\n")
	writeSource(t, dir, "a_test.go", "package tmp\nimport \"bomgraft/internal/infra/blob/s3\"\nvar _ = s3.New\n")
	viols, err := directImportViolations(dir, InfraImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "bomgraft/internal/infra/blob/fs (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
	AssertNoDirectImports(t, dir, CommandImportForbidden, "none")
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected read dir error")
	}
	dir := t.TempDir()
	writeSource(t, dir, "bad.go", "not go")
	if _, err := directImportViolations(dir, InternalImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAssertNoTransitiveDependencyUsesGoList(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })
	var gotPattern string
	goListDeps = func(pattern string) ([]byte, error) {
		gotPattern = pattern
		return []byte("fmt\nbomgraft/pkg/domain\n\n"), nil
	}
	AssertNoTransitiveDependency(t, "./pkg/...", InternalImportForbidden, "domain stays pure")
	if gotPattern != "./pkg/..." {
		t.Fatalf("unexpected pattern %q", gotPattern)
	}
}

type fatalRecorder struct {
	testing.TB
	msg string
}

func (f *fatalRecorder) Helper() {}

func (f *fatalRecorder) Fatalf(format string, _ ...any) {
	f.msg = format
	panic(errStop)
}

var errStop = errors.New("stop")

func expectFatal(t *testing.T, fn func(tb testing.TB)) string {
	t.Helper()
	rec := &fatalRecorder{TB: t}
	func() {
		defer func() {
			if r := recover(); r != nil && r != errStop {
				panic(r)
			}
		}()
		fn(rec)
	}()
	if rec.msg == "" {
		t.Fatalf("expected Fatalf")
	}
	return rec.msg
}

func TestAssertNoTransitiveDependencyFailures(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })

	goListDeps = func(string) ([]byte, error) { return []byte("bomgraft/internal/core\n"), nil }
	if msg := expectFatal(t, func(tb testing.TB) {
		AssertNoTransitiveDependency(tb, ".", InternalImportForbidden, "x")
	}); msg != "forbidden transitive dependencies (%s):\n%s" {
		t.Fatalf("unexpected failure %q", msg)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("boom"), errors.New("exit 1") }
	if msg := expectFatal(t, func(tb testing.TB) {
		AssertNoTransitiveDependency(tb, ".", InternalImportForbidden, "x")
	}); msg != "go list -deps %s: %v\n%s" {
		t.Fatalf("unexpected failure %q", msg)
	}
}
