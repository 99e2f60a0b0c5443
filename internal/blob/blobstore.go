package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Metadata keys attached to sealed artifacts.
const (
	MetaHash      = "hash"
	MetaRevision  = "revision"
	MetaJobNumber = "job-number"
)

// Key joins path segments into an object key, dropping empty segments.
func Key(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			kept = append(kept, s)
		}
	}
	return path.Join(kept...)
}

// PutBytes stores data under key.
func PutBytes(ctx context.Context, store Store, key string, data []byte, opts PutOptions) (Info, error) {
	return store.Put(ctx, key, bytes.NewReader(data), opts)
}

// ReadAll fetches an object fully into memory.
func ReadAll(ctx context.Context, store Store, key string) (Info, []byte, error) {
	info, rc, err := store.Get(ctx, key)
	if err != nil {
		return Info{}, nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Info{}, nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return info, data, nil
}
