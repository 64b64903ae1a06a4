// Package labels archives generated QR label images so printed labels can be
// re-downloaded and audited. The archive is a thin S3-like abstraction with a
// memory driver for dev and tests and an S3 driver for shared deployments.
package labels

import (
	"context"
	"fmt"
	"time"

	"techtrack-backend/config"
)

// Drivers.
const (
	DriverMemory = "memory"
	DriverS3     = "s3"
)

// Info describes one archived label image.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Archive stores rendered label images. Put overwrites: labels are
// re-rendered whenever an item's details change, and the newest render is
// the one that should print.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Info, error)
	Get(ctx context.Context, key string) ([]byte, Info, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() string
}

// Key returns the archive key for an item's label image.
func Key(itemID string) string {
	return "labels/" + itemID + ".png"
}

// New constructs the archive selected by the configuration.
func New(ctx context.Context, cfg config.LabelsConfig) (Archive, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown labels driver %q", cfg.Driver)
	}
}
