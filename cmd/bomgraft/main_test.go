package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bomgraft/internal/artifact"
	"bomgraft/internal/core"
	"bomgraft/pkg/domain"
)

type workspace struct {
	dir    string
	config string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	cfg := strings.Join([]string{
		"storage:",
		"  driver: sqlite",
		"  sqlite_path: " + filepath.Join(dir, "ledger.db"),
		"blob:",
		"  driver: fs",
		"  fs_root: " + filepath.Join(dir, "artifacts"),
		"log:",
		"  level: debug",
		"  format: json",
		"  output_path: " + filepath.Join(dir, "bomgraft.log"),
		"",
	}, "\n")
	path := filepath.Join(dir, "bomgraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return workspace{dir: dir, config: path}
}

func (w workspace) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--config", w.config}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (w workspace) writeRows(t *testing.T, name string, rows []domain.Row) string {
	t.Helper()
	data, err := json.Marshal(rows)
	require.NoError(t, err)
	path := filepath.Join(w.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func row(level, pn, itemType, component, state, qty string) domain.Row {
	return domain.Row{
		Level: level, PartNumber: pn, NSItemType: itemType, ComponentType: component,
		Description: "Item " + pn, Revision: "1", UofM: "ea", State: state, Qty: qty,
	}
}

func exportRows(rootState string) []domain.Row {
	return []domain.Row{
		row("1", "1000001", "Assembly", "Assembly", rootState, "1"),
		row("1.1", "200001", "Assembly", "Assembly", "In Progress", "2"),
		row("1.1.1", "399999", "Inventory", "Purchased", "In Progress", "9"),
		row("1.2", "200002", "Assembly", "Assembly", "Issued for Use", "1"),
		row("1.2.1", "300002", "Inventory", "Purchased", "Issued for Use", "4"),
		row("1.3", "300010", "Inventory", "Purchased", "Issued for Use", "5"),
	}
}

func TestValidateCommand(t *testing.T) {
	w := newWorkspace(t)
	code, out, _ := w.run(t, "validate", w.writeRows(t, "ok.json", exportRows("Issued for Use")))
	require.Equal(t, exitOK, code)
	require.Contains(t, out, `"valid": true`)

	code, out, _ = w.run(t, "validate", w.writeRows(t, "wip.json", exportRows("In Progress")))
	require.Equal(t, exitFailed, code)
	require.Contains(t, out, core.RuleWIPGA)
}

func TestValidateCommandErrors(t *testing.T) {
	w := newWorkspace(t)
	code, _, errOut := w.run(t, "validate", filepath.Join(w.dir, "missing.json"))
	require.Equal(t, exitError, code)
	require.Contains(t, errOut, "error:")

	orphan := w.writeRows(t, "orphan.json", []domain.Row{row("1.1", "200001", "Assembly", "Assembly", "Issued for Use", "1")})
	code, _, errOut = w.run(t, "validate", orphan)
	require.Equal(t, exitError, code)
	require.Contains(t, errOut, "malformed bom structure")

	code, _, _ = w.run(t, "validate")
	require.Equal(t, exitError, code)
}

func TestMergeSealLatestHistory(t *testing.T) {
	w := newWorkspace(t)
	rows := w.writeRows(t, "export.json", exportRows("Issued for Use"))

	code, out, errOut := w.run(t, "merge", rows, "--job", "1J100001", "--seal")
	require.Equal(t, exitOK, code, errOut)
	var sealed sealOutput
	require.NoError(t, json.Unmarshal([]byte(out), &sealed))
	require.Equal(t, 0, sealed.Revision.Revision)
	require.Len(t, sealed.Warnings, 1)
	require.FileExists(t, filepath.Join(w.dir, "artifacts", filepath.FromSlash(sealed.Revision.BlobKey)))

	artifactPath := filepath.Join(w.dir, "rev1.json")
	code, out, errOut = w.run(t, "merge", rows, "--job", "1J100001", "--latest", "--seal", "--out", artifactPath)
	require.Equal(t, exitOK, code, errOut)
	require.NoError(t, json.Unmarshal([]byte(out), &sealed))
	require.Equal(t, 1, sealed.Revision.Revision)
	require.Equal(t, artifactPath, sealed.Out)

	code, out, _ = w.run(t, "history", "1J100001")
	require.Equal(t, exitOK, code)
	var revs []domain.Revision
	require.NoError(t, json.Unmarshal([]byte(out), &revs))
	require.Len(t, revs, 2)

	code, out, _ = w.run(t, "verify", artifactPath, "--expect-ga", "1000001", "--expect-revision", "2")
	require.Equal(t, exitOK, code)
	var rep artifact.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.True(t, rep.Valid)
	require.Empty(t, rep.Warnings)

	code, _, errOut = w.run(t, "merge", rows, "--job", "1J100001", "--revision", "1", "--seal")
	require.Equal(t, exitError, code)
	require.Contains(t, errOut, "already")
}

func TestMergeWithPriorFileWritesArtifact(t *testing.T) {
	w := newWorkspace(t)
	rows := w.writeRows(t, "export.json", exportRows("Issued for Use"))
	rev0 := filepath.Join(w.dir, "rev0.json")
	code, _, errOut := w.run(t, "merge", rows, "--job", "1J100001", "--out", rev0)
	require.Equal(t, exitOK, code, errOut)

	rev1 := filepath.Join(w.dir, "rev1.json")
	code, out, errOut := w.run(t, "merge", rows, "--prior-file", rev0, "--out", rev1)
	require.Equal(t, exitOK, code, errOut)
	var exported exportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Equal(t, 1, exported.Metadata.Revision)
	require.Equal(t, "1J100001", exported.Metadata.JobNumber)
	require.Equal(t, "rev0.json", exported.Metadata.SourceFiles.Prior)

	code, out, _ = w.run(t, "merge", rows, "--prior-file", rev0)
	require.Equal(t, exitOK, code)
	var res core.MergeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 1, res.Summary.Grafted)

	code, _, _ = w.run(t, "merge", rows, "--prior-file", rev0, "--latest")
	require.Equal(t, exitError, code)
}

func TestMergeRejectsTamperedPrior(t *testing.T) {
	w := newWorkspace(t)
	rows := w.writeRows(t, "export.json", exportRows("Issued for Use"))
	rev0 := filepath.Join(w.dir, "rev0.json")
	code, _, _ := w.run(t, "merge", rows, "--job", "1J100001", "--out", rev0)
	require.Equal(t, exitOK, code)

	data, err := os.ReadFile(rev0)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"qty": 5`, `"qty": 6`, 1)
	require.NotEqual(t, string(data), tampered)
	require.NoError(t, os.WriteFile(rev0, []byte(tampered), 0o644))

	code, _, errOut := w.run(t, "merge", rows, "--prior-file", rev0)
	require.Equal(t, exitFailed, code)
	require.Contains(t, errOut, "hash mismatch")

	code, out, _ := w.run(t, "verify", rev0)
	require.Equal(t, exitFailed, code)
	require.Contains(t, out, `"valid": false`)
}

func TestFlattenAndCompare(t *testing.T) {
	w := newWorkspace(t)
	oldRows := exportRows("Issued for Use")
	newRows := exportRows("Issued for Use")
	newRows[5].Qty = "7"
	newRows = append(newRows, row("1.4", "300011", "Inventory", "Purchased", "Issued for Use", "1"))
	oldPath := w.writeRows(t, "old.json", oldRows)
	newPath := w.writeRows(t, "new.json", newRows)

	code, out, _ := w.run(t, "flatten", oldPath, "--sort")
	require.Equal(t, exitOK, code)
	var items []core.LineItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 3)

	code, out, _ = w.run(t, "flatten", oldPath)
	require.Equal(t, exitOK, code)
	var unsorted []core.LineItem
	require.NoError(t, json.Unmarshal([]byte(out), &unsorted))
	require.ElementsMatch(t, items, unsorted)

	code, out, _ = w.run(t, "compare", oldPath, newPath)
	require.Equal(t, exitOK, code)
	var diffs []core.Difference
	require.NoError(t, json.Unmarshal([]byte(out), &diffs))
	require.Len(t, diffs, 2)
	require.Equal(t, core.ChangeChanged, diffs[0].ChangeType)
	require.Equal(t, core.ChangeAdded, diffs[1].ChangeType)

	code, out, _ = w.run(t, "compare", oldPath, oldPath)
	require.Equal(t, exitOK, code)
	require.Equal(t, "[]", strings.TrimSpace(out))

	code, _, _ = w.run(t, "compare", oldPath, filepath.Join(w.dir, "missing.json"))
	require.Equal(t, exitError, code)
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: mongo\n"), 0o644))
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", path, "history", "1J100001"}, &stdout, &stderr)
	require.Equal(t, exitError, code)
	require.Contains(t, stderr.String(), "invalid config")
}

func TestMainUsesExitFunc(t *testing.T) {
	var got int
	prevExit, prevArgs := exitFunc, os.Args
	defer func() { exitFunc, os.Args = prevExit, prevArgs }()
	exitFunc = func(code int) { got = code }
	os.Args = []string{"bomgraft", "validate"}
	main()
	require.Equal(t, exitError, got)
}
