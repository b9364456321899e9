// Package pdf validates source documents and rasterizes their pages into
// images for the OCR collaborator.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Validator checks that an input file is a document we can process.
type Validator struct {
	maxSizeBytes int64
}

// NewValidator creates a validator with the given file size ceiling.
func NewValidator(maxSizeBytes int64) *Validator {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 200 * 1024 * 1024
	}
	return &Validator{maxSizeBytes: maxSizeBytes}
}

// ValidatePath rejects unusable inputs up front: missing files, directories,
// unsupported formats, and oversized files. Violations surface as
// unsupported-document errors with no retry.
func (v *Validator) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.UnsupportedDocumentError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.UnsupportedDocumentError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.IOError(fmt.Sprintf("cannot access file: %s", path), err)
	}
	if info.IsDir() {
		return domain.UnsupportedDocumentError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.UnsupportedDocumentError(fmt.Sprintf("unsupported format %q, only PDF is accepted", ext), nil)
	}

	if info.Size() > v.maxSizeBytes {
		return domain.UnsupportedDocumentError(
			fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), v.maxSizeBytes), nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.IOError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	f.Close()

	return nil
}

// ValidatePageCount enforces the supported page-count bound.
func (v *Validator) ValidatePageCount(pages, maxPages int) error {
	if pages == 0 {
		return domain.UnsupportedDocumentError("document has no pages", nil)
	}
	if maxPages > 0 && pages > maxPages {
		return domain.UnsupportedDocumentError(
			fmt.Sprintf("document has %d pages, limit is %d", pages, maxPages), nil)
	}
	return nil
}

// ValidateQuality checks the JPEG quality parameter.
func (v *Validator) ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.ValidationError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	return nil
}
