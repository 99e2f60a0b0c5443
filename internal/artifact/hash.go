package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"bomgraft/pkg/domain"
)

// isolate json usage so error paths can be exercised in tests.
var jsonMarshal = json.Marshal

// Canonical serializes a tree with every object's keys sorted and arrays in
// order. Provenance annotations present on the tree are included.
func Canonical(root *domain.Node) ([]byte, error) {
	raw, err := jsonMarshal(root)
	if err != nil {
		return nil, fmt.Errorf("encode bom: %w", err)
	}
	return CanonicalJSON(raw)
}

// CanonicalJSON rewrites an arbitrary JSON document into canonical form.
// Numbers keep their original text and HTML characters are not escaped.
func CanonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	// maps encode with sorted keys, which is the whole canonical form.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode canonical json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Hash returns the lowercase hex SHA-256 of the tree's canonical form. Two
// trees with the same parts but different provenance tags hash differently.
func Hash(root *domain.Node) (string, error) {
	canon, err := Canonical(root)
	if err != nil {
		return "", err
	}
	return hashBytes(canon), nil
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
