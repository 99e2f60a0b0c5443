package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"bomgraft/internal/blob/core"
)

func TestMockStoreLifecycle(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 || store.Bucket() != mockBucket {
		t.Fatalf("unexpected store identity")
	}
	key := "1J100001/1J100001-IFP REV2 (Mar 4, 2025).json"
	body := []byte(`{"formatVersion":"1.0"}`)
	info, err := store.Put(ctx, key, bytes.NewReader(body), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"hash": "abc123", "revision": "2"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != key || info.Size != int64(len(body)) || info.ContentType != "application/json" {
		t.Fatalf("unexpected put info %+v", info)
	}
	if info.Metadata["hash"] != "abc123" || info.Metadata["revision"] != "2" {
		t.Fatalf("metadata not round-tripped: %+v", info.Metadata)
	}

	if _, err := store.Put(ctx, key, bytes.NewReader([]byte("again")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(data, body) || got.ETag != "mock-etag" {
		t.Fatalf("unexpected get %+v %q", got, data)
	}

	if _, err := store.Put(ctx, "1J100002/other.json", bytes.NewReader([]byte("{}")), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "1J100001/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != key {
		t.Fatalf("unexpected list %+v", list)
	}

	ok, err := store.Delete(ctx, key)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, key)
	if err != nil || ok {
		t.Fatalf("second delete should report false: %v %v", ok, err)
	}
}

func TestMockStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if _, err := store.Head(ctx, "missing.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestDecodeChunked(t *testing.T) {
	framed := []byte("5;chunk-signature=x\r\nhello\r\n6\r\n world\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")
	if got := string(decodeChunked(framed)); got != "hello world" {
		t.Fatalf("unexpected decode %q", got)
	}
	raw := []byte(`{"not":"chunked"}`)
	if got := decodeChunked(raw); !bytes.Equal(got, raw) {
		t.Fatalf("unframed payload must pass through")
	}
}

func TestLowerKeys(t *testing.T) {
	if lowerKeys(nil) != nil {
		t.Fatalf("expected nil")
	}
	if got := lowerKeys(map[string]string{"Job-Number": "1J100001"}); got["job-number"] != "1J100001" {
		t.Fatalf("unexpected %v", got)
	}
}
