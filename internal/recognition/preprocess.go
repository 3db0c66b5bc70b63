// Package recognition implements the KTP processing pipeline: image
// preprocessing, layout analysis, OCR, and field extraction.
package recognition

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	"github.com/Nengock/katepeh/internal/domain"
)

const (
	// Target card dimensions after preprocessing. A KTP is 85.6 x 54 mm;
	// 800x500 keeps that aspect ratio closely enough for region analysis.
	TargetWidth  = 800
	TargetHeight = 500

	minDimension = 100
)

// Preprocessor normalizes an uploaded photo before it reaches the analyzer
// and the OCR engine: downscale to the working size, denoise, correct the
// card's perspective, and boost contrast.
type Preprocessor struct {
	targetWidth  int
	targetHeight int

	// Progressively smaller minimum quad areas tried during perspective
	// correction before giving up on finding the card outline.
	minQuadAreas []int
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		targetWidth:  TargetWidth,
		targetHeight: TargetHeight,
		minQuadAreas: []int{1000, 500, 250},
	}
}

// Decode parses JPEG or PNG bytes into an image.
func (p *Preprocessor) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, domain.NewValidationError("empty file uploaded")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid image file: %v", err))
	}
	return img, nil
}

// Preprocess runs the full pipeline. In bypass mode the size gate upscales
// instead of rejecting and perspective correction is skipped, so the caller
// always gets a usable image back.
func (p *Preprocessor) Preprocess(img image.Image, bypass bool) (image.Image, error) {
	bounds := img.Bounds()
	if bounds.Dx() < minDimension || bounds.Dy() < minDimension {
		if !bypass {
			return nil, domain.NewValidationError("image is too small; minimum size is 100x100 pixels")
		}
		w := max(minDimension, bounds.Dx())
		h := max(minDimension, bounds.Dy())
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	img = p.fitToTarget(img)

	if !bypass {
		// Light blur stands in for bilateral denoising; it suppresses
		// sensor noise without destroying the label text edges.
		img = imaging.Blur(img, 0.6)
		if corrected := p.correctPerspective(img); corrected != nil {
			img = corrected
		}
	}

	img = imaging.AdjustContrast(img, 20)
	img = imaging.Sharpen(img, 0.5)
	return img, nil
}

// fitToTarget shrinks the image to fit the working size. Images already
// smaller than the target are left alone.
func (p *Preprocessor) fitToTarget(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= p.targetWidth && bounds.Dy() <= p.targetHeight {
		return img
	}
	return imaging.Fit(img, p.targetWidth, p.targetHeight, imaging.Lanczos)
}

// correctPerspective locates the card outline and warps it onto the full
// target rectangle. Returns nil when no plausible quad is found; the caller
// keeps the uncorrected image in that case.
func (p *Preprocessor) correctPerspective(img image.Image) image.Image {
	for _, minArea := range p.minQuadAreas {
		quad, ok := detectCardQuad(img, float64(minArea))
		if !ok {
			continue
		}
		return warpPerspective(img, quad, p.targetWidth, p.targetHeight)
	}
	return nil
}
