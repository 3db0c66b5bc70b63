package recognition

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nengock/katepeh/internal/domain"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	p := NewPreprocessor()

	img, err := p.Decode(pngBytes(t, solidImage(200, 120, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	_, err = p.Decode(nil)
	assert.True(t, domain.IsValidationError(err), "empty input")

	_, err = p.Decode([]byte("not an image"))
	assert.True(t, domain.IsValidationError(err), "garbage input")
}

func TestPreprocessRejectsTinyImage(t *testing.T) {
	p := NewPreprocessor()

	_, err := p.Preprocess(solidImage(50, 50, color.White), false)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestPreprocessBypassUpscalesTinyImage(t *testing.T) {
	p := NewPreprocessor()

	out, err := p.Preprocess(solidImage(50, 50, color.White), true)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out.Bounds().Dx(), 100)
	assert.GreaterOrEqual(t, out.Bounds().Dy(), 100)
}

func TestPreprocessDownscalesOnly(t *testing.T) {
	p := NewPreprocessor()

	out, err := p.Preprocess(solidImage(1600, 1000, color.White), true)
	require.NoError(t, err)
	assert.LessOrEqual(t, out.Bounds().Dx(), TargetWidth)
	assert.LessOrEqual(t, out.Bounds().Dy(), TargetHeight)

	// Images already within the target keep their dimensions.
	out, err = p.Preprocess(solidImage(400, 250, color.White), true)
	require.NoError(t, err)
	assert.Equal(t, 400, out.Bounds().Dx())
	assert.Equal(t, 250, out.Bounds().Dy())
}

func TestOrderPoints(t *testing.T) {
	pts := []point{{90, 10}, {10, 12}, {88, 60}, {12, 58}}
	rect := orderPoints(pts)

	assert.Equal(t, point{10, 12}, rect[0], "top-left")
	assert.Equal(t, point{90, 10}, rect[1], "top-right")
	assert.Equal(t, point{88, 60}, rect[2], "bottom-right")
	assert.Equal(t, point{12, 58}, rect[3], "bottom-left")
}

func TestHomographyIdentity(t *testing.T) {
	sq := [4]point{{0, 0}, {99, 0}, {99, 49}, {0, 49}}
	m, ok := homography(sq, sq)
	require.True(t, ok)

	// The identity map must take every corner to itself.
	for _, p := range sq {
		denom := m[6]*p.X + m[7]*p.Y + m[8]
		x := (m[0]*p.X + m[1]*p.Y + m[2]) / denom
		y := (m[3]*p.X + m[4]*p.Y + m[5]) / denom
		assert.InDelta(t, p.X, x, 1e-6)
		assert.InDelta(t, p.Y, y, 1e-6)
	}
}

func TestHomographyMapsCorners(t *testing.T) {
	src := [4]point{{0, 0}, {199, 0}, {199, 99}, {0, 99}}
	dst := [4]point{{10, 20}, {180, 30}, {170, 110}, {15, 95}}
	m, ok := homography(src, dst)
	require.True(t, ok)

	for i := range src {
		denom := m[6]*src[i].X + m[7]*src[i].Y + m[8]
		x := (m[0]*src[i].X + m[1]*src[i].Y + m[2]) / denom
		y := (m[3]*src[i].X + m[4]*src[i].Y + m[5]) / denom
		assert.InDelta(t, dst[i].X, x, 1e-6)
		assert.InDelta(t, dst[i].Y, y, 1e-6)
	}
}

func TestWarpPerspectiveCrop(t *testing.T) {
	// A white card on a dark background: warping the card quad onto the
	// output should yield a mostly white image.
	img := solidImage(400, 250, color.Black)
	card := image.Rect(50, 40, 350, 210)
	draw.Draw(img, card, &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	quad := [4]point{{50, 40}, {349, 40}, {349, 209}, {50, 209}}
	out := warpPerspective(img, quad, 200, 125)
	require.NotNil(t, out)

	center := out.NRGBAAt(100, 62)
	assert.Greater(t, int(center.R), 200, "card interior should stay white")
}

func TestDetectCardQuad(t *testing.T) {
	img := solidImage(400, 250, color.Black)
	card := image.Rect(60, 50, 340, 200)
	draw.Draw(img, card, &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	quad, ok := detectCardQuad(img, 1000)
	require.True(t, ok)

	// Corners should land near the drawn card edges (dilation widens the
	// outline by a few pixels).
	assert.InDelta(t, 60, quad[0].X, 10)
	assert.InDelta(t, 50, quad[0].Y, 10)
	assert.InDelta(t, 340, quad[2].X, 10)
	assert.InDelta(t, 200, quad[2].Y, 10)
}

func TestDetectCardQuadNoCard(t *testing.T) {
	_, ok := detectCardQuad(solidImage(400, 250, color.White), 1000)
	assert.False(t, ok, "featureless image has no card outline")
}
