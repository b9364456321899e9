package pdf

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"

	"github.com/deepcompress/deepcompress/internal/domain"
)

// Converter rasterizes PDF pages to JPEG images. It implements
// domain.Rasterizer; every call renders into a fresh temporary directory,
// so one Converter serves concurrent callers.
type Converter struct {
	validator *Validator
	maxPages  int
	logger    zerolog.Logger
}

// NewConverter creates a page rasterizer. maxPages of zero means unbounded.
func NewConverter(validator *Validator, maxPages int, logger zerolog.Logger) *Converter {
	return &Converter{
		validator: validator,
		maxPages:  maxPages,
		logger:    logger.With().Str("component", "pdf").Logger(),
	}
}

// Rasterize renders every page of the PDF at path into a JPEG file and
// returns the page images in order, numbered from 1, plus a cleanup that
// removes this call's scratch directory.
func (c *Converter) Rasterize(ctx context.Context, path string, quality int) ([]domain.PageImage, func() error, error) {
	if err := c.validator.ValidatePath(path); err != nil {
		return nil, nil, err
	}
	if err := c.validator.ValidateQuality(quality); err != nil {
		return nil, nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, nil, domain.UnsupportedDocumentError(fmt.Sprintf("cannot open PDF: %s", path), err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if err := c.validator.ValidatePageCount(numPages, c.maxPages); err != nil {
		return nil, nil, err
	}

	dir, err := os.MkdirTemp("", "deepcompress-*")
	if err != nil {
		return nil, nil, domain.IOError("cannot create temporary directory", err)
	}
	cleanup := func() error {
		if err := os.RemoveAll(dir); err != nil {
			return domain.IOError("cannot remove temporary directory", err)
		}
		return nil
	}
	fail := func(err error) ([]domain.PageImage, func() error, error) {
		os.RemoveAll(dir)
		return nil, nil, err
	}

	c.logger.Debug().
		Str("path", path).
		Int("pages", numPages).
		Int("quality", quality).
		Msg("rasterizing document")

	images := make([]domain.PageImage, 0, numPages)
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		img, err := doc.Image(i)
		if err != nil {
			return fail(domain.IOError(fmt.Sprintf("cannot render page %d", i+1), err))
		}

		imgPath := filepath.Join(dir, fmt.Sprintf("page_%04d.jpg", i+1))
		f, err := os.Create(imgPath)
		if err != nil {
			return fail(domain.IOError(fmt.Sprintf("cannot create image file for page %d", i+1), err))
		}
		if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
			f.Close()
			return fail(domain.IOError(fmt.Sprintf("cannot encode page %d", i+1), err))
		}
		if err := f.Close(); err != nil {
			return fail(domain.IOError(fmt.Sprintf("cannot write image file for page %d", i+1), err))
		}

		bounds := img.Bounds()
		images = append(images, domain.PageImage{
			PageNumber: i + 1,
			ImagePath:  imgPath,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	return images, cleanup, nil
}
