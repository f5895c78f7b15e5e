// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach loads image attachments for prompts and profile photos.
//
// Files are checked client-side before any upload: only content that sniffs
// as an image is accepted. An accepted image also yields a data URL used as
// the local preview of an optimistic user turn.
package attach

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageSize is the largest attachment accepted (10MB).
const MaxImageSize = 10 * 1024 * 1024

// Extensions lists the file extensions offered by the image picker.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

var (
	// ErrNotImage indicates the file content is not an image.
	ErrNotImage = errors.New("only image files can be attached")

	// ErrTooLarge indicates the file exceeds MaxImageSize.
	ErrTooLarge = errors.New("image too large")

	// ErrEmpty indicates a zero-length file.
	ErrEmpty = errors.New("image file is empty")
)

// =============================================================================
// IMAGE
// =============================================================================

// Image is an attachment ready for upload.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Load reads and validates the image at path.
func Load(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotImage, path)
	}
	if info.Size() > MaxImageSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), MaxImageSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes validates in-memory image data.
func FromBytes(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), MaxImageSize)
	}

	ct := DetectContentType(name, data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotImage, name, ct)
	}
	return &Image{Name: name, ContentType: ct, Data: data}, nil
}

// DetectContentType sniffs data, falling back to the file extension when
// the content alone is inconclusive.
func DetectContentType(name string, data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	if ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); strings.HasPrefix(byExt, "image/") {
			return byExt
		}
	}
	return ct
}

// DataURL returns the image as a data: URL for local previews.
func (i *Image) DataURL() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Size returns the image size in bytes.
func (i *Image) Size() int {
	return len(i.Data)
}

// IsImagePath reports whether path has one of the picker extensions.
func IsImagePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
