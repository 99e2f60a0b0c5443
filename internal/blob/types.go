// Package blob is the entry point to artifact object storage. Callers depend
// on Store; the backends under internal/infra/blob are only reachable
// through this package.
package blob

import (
	"bomgraft/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound is returned for reads of a missing key.
	ErrNotFound = core.ErrNotFound
	// ErrExists is returned when a write targets an existing key.
	ErrExists = core.ErrExists
)
