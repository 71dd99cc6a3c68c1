// Package artifact turns a set of scanned page images into the single PDF
// that gets uploaded to the server. One image becomes one page, sized to
// the image's aspect ratio.
package artifact

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/unidoc/unipdf/v3/creator"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/napoleonmm83/paperless-scanner-sub004/internal/api"
)

// MaxPixels is the downsample ceiling. Images above it are scaled down
// before encoding, keeping uploads from phone cameras within sane bounds.
const MaxPixels = 12_000_000

// Builder synthesizes PDF artifacts from page images.
type Builder struct {
	maxPixels int
	log       *zap.Logger
}

// NewBuilder creates a Builder with the default pixel ceiling.
func NewBuilder(log *zap.Logger) *Builder {
	return &Builder{maxPixels: MaxPixels, log: log}
}

// IsPDF reports whether the file at path is already a PDF, which is
// uploaded as-is instead of being re-encoded.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// BuildPDF renders the ordered page images into a single PDF. The first
// page must decode; a later page that cannot be decoded is skipped and
// logged, so a half-broken scan still produces a document.
func (b *Builder) BuildPDF(paths []string) ([]byte, error) {
	if len(paths) == 0 {
		return nil, &api.ContentError{Message: "no pages to build"}
	}

	c := creator.New()
	pages := 0
	for i, path := range paths {
		data, err := b.encodePage(path)
		if err != nil {
			if i == 0 {
				return nil, &api.ContentError{Message: fmt.Sprintf("first page %s unreadable", filepath.Base(path)), Err: err}
			}
			b.log.Warn("skipping unreadable page",
				zap.String("path", path),
				zap.Int("page", i+1),
				zap.Error(err))
			continue
		}

		img, err := c.NewImageFromData(data)
		if err != nil {
			if i == 0 {
				return nil, &api.ContentError{Message: fmt.Sprintf("first page %s unreadable", filepath.Base(path)), Err: err}
			}
			b.log.Warn("skipping unreadable page",
				zap.String("path", path),
				zap.Int("page", i+1),
				zap.Error(err))
			continue
		}

		// Page size follows the image so nothing is cropped or letterboxed.
		w, h := img.Width(), img.Height()
		c.SetPageSize(creator.PageSize{w, h})
		c.NewPage()
		img.SetPos(0, 0)
		img.SetWidth(w)
		img.SetHeight(h)
		if err := c.Draw(img); err != nil {
			return nil, &api.ContentError{Message: fmt.Sprintf("draw page %d", i+1), Err: err}
		}
		pages++
	}

	if pages == 0 {
		return nil, &api.ContentError{Message: "no decodable pages"}
	}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, &api.ContentError{Message: "write pdf", Err: err}
	}
	return buf.Bytes(), nil
}

// encodePage decodes one page image, downsamples it when it exceeds the
// pixel ceiling and re-encodes it as JPEG with quality scaled to its
// resolution.
func (b *Builder) encodePage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	bounds := src.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels > b.maxPixels {
		scale := float64(b.maxPixels) / float64(pixels)
		w := int(float64(bounds.Dx()) * math.Sqrt(scale))
		src = imaging.Resize(src, w, 0, imaging.Lanczos)
		bounds = src.Bounds()
		pixels = bounds.Dx() * bounds.Dy()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: qualityFor(pixels)}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return buf.Bytes(), nil
}

// qualityFor picks a JPEG quality for the given pixel count. High-resolution
// scans compress harder; small images keep more detail.
func qualityFor(pixels int) int {
	switch {
	case pixels >= 8_000_000:
		return 62
	case pixels >= 5_000_000:
		return 70
	case pixels >= 2_000_000:
		return 80
	default:
		return 90
	}
}

