// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// pngHeader is the 8-byte PNG signature followed by an IHDR chunk start.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestFromBytes(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantCT  string
		wantErr error
	}{
		{"png", "cat.png", pngHeader, "image/png", nil},
		{"gif", "a.gif", []byte("GIF89a......"), "image/gif", nil},
		{"text", "notes.png", []byte("just some text"), "", ErrNotImage},
		{"empty", "x.png", nil, "", ErrEmpty},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := FromBytes(tc.file, tc.data)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("FromBytes() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromBytes() unexpected error: %v", err)
			}
			if img.ContentType != tc.wantCT {
				t.Errorf("ContentType = %q, want %q", img.ContentType, tc.wantCT)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, pngHeader, 0600); err != nil {
		t.Fatal(err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Name != "photo.png" || img.Size() != len(pngHeader) {
		t.Errorf("Load() = %+v", img)
	}
	if !strings.HasPrefix(img.DataURL(), "data:image/png;base64,") {
		t.Errorf("DataURL() = %q", img.DataURL())
	}

	if _, err := Load(dir); !errors.Is(err, ErrNotImage) {
		t.Errorf("Load(dir) error = %v, want ErrNotImage", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Load(missing) should fail")
	}
}

func TestIsImagePath(t *testing.T) {
	if !IsImagePath("/x/Y.JPG") {
		t.Error("IsImagePath should accept upper-case extensions")
	}
	if IsImagePath("/x/y.txt") {
		t.Error("IsImagePath should reject .txt")
	}
}
