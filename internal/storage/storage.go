// Package storage keeps the brand logo either inline in the settings table
// or in S3-compatible object storage.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDataURL = errors.New("logo must be a base64 image data URL")

// MaxLogoBytes bounds the decoded logo size
const MaxLogoBytes = 2 << 20

// LogoStore persists a logo and returns the value to keep in settings
type LogoStore interface {
	Save(ctx context.Context, dataURL string) (string, error)
	Remove(ctx context.Context, ref string) error
}

// DataURL is a decoded data: URL
type DataURL struct {
	ContentType string
	Data        []byte
}

// ParseDataURL decodes data:image/<type>;base64,<payload>
func ParseDataURL(s string) (*DataURL, error) {
	if !strings.HasPrefix(s, "data:image/") {
		return nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidDataURL
	}
	if len(data) > MaxLogoBytes {
		return nil, fmt.Errorf("%w: logo exceeds %d bytes", ErrInvalidDataURL, MaxLogoBytes)
	}
	return &DataURL{ContentType: strings.TrimSuffix(meta, ";base64"), Data: data}, nil
}

// InlineStore keeps the data URL itself as the stored value
type InlineStore struct{}

func (InlineStore) Save(_ context.Context, dataURL string) (string, error) {
	if _, err := ParseDataURL(dataURL); err != nil {
		return "", err
	}
	return dataURL, nil
}

func (InlineStore) Remove(context.Context, string) error { return nil }
