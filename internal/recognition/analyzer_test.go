package recognition

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cardLikeImage draws dark text bands at the positions a KTP would have:
// header, NIK line, personal info block, and a footer, plus a photo block on
// the left edge.
func cardLikeImage() *image.NRGBA {
	img := solidImage(800, 500, color.White)
	dark := &image.Uniform{C: color.Black}

	bands := []image.Rectangle{
		image.Rect(200, 30, 600, 60),   // header
		image.Rect(40, 110, 500, 140),  // nik line
		image.Rect(240, 170, 700, 190), // personal info rows
		image.Rect(240, 210, 700, 230),
		image.Rect(240, 250, 700, 270),
		image.Rect(240, 290, 700, 310),
		image.Rect(60, 400, 300, 470),  // photo block
		image.Rect(550, 420, 760, 460), // footer signature area
	}
	for _, b := range bands {
		draw.Draw(img, b, dark, image.Point{}, draw.Src)
	}
	return img
}

func TestAnalyzeLayoutRecognizesCard(t *testing.T) {
	info, err := NewDocumentAnalyzer().AnalyzeLayout(context.Background(), cardLikeImage())
	require.NoError(t, err)

	assert.True(t, info.IsKTP)
	assert.True(t, info.ValidLayout)
	assert.GreaterOrEqual(t, len(info.Regions), 3)
	assert.Greater(t, info.Confidence, 0.4)
	assert.LessOrEqual(t, info.Confidence, 1.0)
}

func TestAnalyzeLayoutRejectsBlankImage(t *testing.T) {
	info, err := NewDocumentAnalyzer().AnalyzeLayout(context.Background(), solidImage(800, 500, color.White))
	require.NoError(t, err)

	assert.False(t, info.IsKTP)
	assert.False(t, info.ValidLayout)
	assert.Less(t, info.Confidence, 0.4)
}

func TestAnalyzeLayoutWrongAspectScoresLower(t *testing.T) {
	// Same content drawn on a square frame scores below the card frame.
	square := solidImage(500, 500, color.White)
	dark := &image.Uniform{C: color.Black}
	for _, b := range []image.Rectangle{
		image.Rect(100, 30, 400, 60),
		image.Rect(40, 110, 450, 140),
		image.Rect(150, 200, 450, 230),
	} {
		draw.Draw(square, b, dark, image.Point{}, draw.Src)
	}

	cardInfo, err := NewDocumentAnalyzer().AnalyzeLayout(context.Background(), cardLikeImage())
	require.NoError(t, err)
	squareInfo, err := NewDocumentAnalyzer().AnalyzeLayout(context.Background(), square)
	require.NoError(t, err)

	assert.Less(t, squareInfo.Confidence, cardInfo.Confidence)
}

func TestAnalyzeLayoutCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDocumentAnalyzer().AnalyzeLayout(ctx, cardLikeImage())
	assert.Error(t, err)
}

func TestOtsuThresholdSeparatesBimodal(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			v := uint8(230)
			if x < 30 {
				v = 20
			}
			gray.SetGray(x, y, color.Gray{Y: v})
		}
	}

	threshold := otsuThreshold(gray)
	assert.Greater(t, threshold, uint8(20))
	assert.Less(t, threshold, uint8(230))
}
