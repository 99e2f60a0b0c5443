package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"bomgraft/internal/artifact"
	"bomgraft/pkg/domain"
)

// input is a BOM read from disk: either an export's rows or a sealed artifact.
type input struct {
	Tree     domain.Tree
	Artifact *artifact.Artifact
}

func readRows(path string) (domain.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Tree{}, err
	}
	var rows []domain.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return domain.Tree{}, fmt.Errorf("%s: rows must be a JSON array: %w", path, err)
	}
	return domain.Build(rows)
}

func readArtifact(path string) (*artifact.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := artifact.Import(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// readInput accepts rows (a JSON array) or an artifact (a JSON object). An
// artifact must pass its integrity check.
func readInput(path string) (input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return input{}, err
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		tree, err := readRows(path)
		return input{Tree: tree}, err
	}
	a, err := readArtifact(path)
	if err != nil {
		return input{}, err
	}
	if rep := artifact.Validate(a, artifact.Expectations{}); rep.Err() != nil {
		return input{}, fmt.Errorf("%s: %w", path, rep.Err())
	}
	return input{
		Tree:     domain.Tree{Root: a.BOM, Info: domain.RootInfo{PartNumber: a.BOM.PartNumber, Revision: a.BOM.Revision, Description: a.BOM.Description}},
		Artifact: a,
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
