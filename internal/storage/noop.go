package storage

import (
	"context"
	"errors"
	"io"
)

var ErrStorageDisabled = errors.New("image storage is not configured")

// Disabled is used when no bucket is configured: uploads fail, deletes are no-ops.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, io.Reader) (string, error) {
	return "", ErrStorageDisabled
}

func (Disabled) Delete(context.Context, ...string) error { return nil }
