package recognition

import (
	"bytes"
	"context"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/Nengock/katepeh/internal/domain"
)

// TesseractEngine runs OCR through a local tesseract installation. It
// implements domain.OCREngine; a client is created per call because gosseract
// clients are not safe for concurrent use.
type TesseractEngine struct {
	languages []string
}

// NewTesseractEngine builds an engine for the given language spec, e.g.
// "ind+eng" for Indonesian with an English fallback.
func NewTesseractEngine(languages string) *TesseractEngine {
	langs := strings.Split(languages, "+")
	if languages == "" {
		langs = []string{"ind", "eng"}
	}
	return &TesseractEngine{languages: langs}
}

func (e *TesseractEngine) ProcessImage(ctx context.Context, img image.Image) ([]domain.TextRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Grayscale plus a light sharpen before handing the image to
	// tesseract; the preprocessor has already handled contrast.
	processed := imaging.Grayscale(img)
	processed = imaging.Sharpen(processed, 0.5)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, processed, imaging.JPEG); err != nil {
		return nil, domain.NewOCRError("failed to encode image for OCR", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, domain.NewOCRError("failed to configure OCR language", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, domain.NewOCRError("failed to set image for OCR", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil && len(boxes) > 0 {
		regions := make([]domain.TextRegion, 0, len(boxes))
		for _, box := range boxes {
			text := strings.TrimSpace(box.Word)
			if text == "" {
				continue
			}
			regions = append(regions, domain.TextRegion{
				Text:       text,
				Box:        box.Box,
				Confidence: box.Confidence,
			})
		}
		return regions, nil
	}

	// Fall back to plain text recognition when line geometry is
	// unavailable.
	text, err := client.Text()
	if err != nil {
		return nil, domain.NewOCRError("OCR failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []domain.TextRegion{{Text: text, Box: img.Bounds()}}, nil
}
