package recognition

import (
	"context"
	"image"
	"math"

	"github.com/Nengock/katepeh/internal/domain"
)

// KTP cards are 85.6 x 54 mm.
const cardAspectRatio = 85.6 / 54.0

// Region buckets a KTP layout is expected to populate, in normalized
// coordinates. A band whose top-left corner falls inside a bucket (within
// tolerance) claims that region; at least three claimed regions make the
// layout valid.
type regionBounds struct {
	xMin, xMax float64
	yMin, yMax float64
}

var keyRegions = map[string]regionBounds{
	"header":        {xMin: 0, xMax: 1, yMin: 0, yMax: 0.25},
	"photo":         {xMin: 0, xMax: 0.35, yMin: 0, yMax: 1},
	"nik":           {xMin: 0, xMax: 1, yMin: 0.15, yMax: 0.35},
	"personal_info": {xMin: 0.25, xMax: 1.0, yMin: 0.2, yMax: 0.85},
	"footer":        {xMin: 0, xMax: 1, yMin: 0.75, yMax: 1.0},
}

const (
	regionTolerance    = 0.05
	minValidRegions    = 3
	contentWeight      = 0.7
	layoutWeight       = 0.3
	invalidLayoutScore = 0.5
	ktpThreshold       = 0.4
)

// DocumentAnalyzer scores how strongly an image resembles a KTP. It stands in
// for a pretrained layout model: text bands found by ink projection fill the
// region buckets a KTP layout defines, and the confidence combines content
// and layout scores with a 0.7/0.3 weighting.
type DocumentAnalyzer struct{}

func NewDocumentAnalyzer() *DocumentAnalyzer {
	return &DocumentAnalyzer{}
}

func (a *DocumentAnalyzer) AnalyzeLayout(ctx context.Context, img image.Image) (*domain.LayoutInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := toGray(img)
	threshold := otsuThreshold(gray)
	bands, inkRatio := textBands(gray, threshold)

	regions := bucketRegions(bands, img.Bounds())
	validLayout := len(regions) >= minValidRegions

	contentScore := a.contentScore(img.Bounds(), inkRatio, len(bands))

	layoutScore := invalidLayoutScore
	if validLayout {
		layoutScore = 1.0
	}
	confidence := contentScore*contentWeight + layoutScore*layoutWeight

	return &domain.LayoutInfo{
		IsKTP:       confidence > ktpThreshold,
		Confidence:  confidence,
		Regions:     regions,
		ValidLayout: validLayout,
	}, nil
}

// contentScore rates the image on card aspect ratio and ink coverage. A blank
// frame or a wall of ink scores near zero regardless of shape.
func (a *DocumentAnalyzer) contentScore(bounds image.Rectangle, inkRatio float64, bandCount int) float64 {
	if bandCount == 0 {
		return 0
	}

	aspect := float64(bounds.Dx()) / float64(bounds.Dy())
	aspectScore := 1 - math.Min(1, math.Abs(aspect-cardAspectRatio)/cardAspectRatio)

	// Printed card text typically covers a few percent of the surface.
	densityScore := math.Min(inkRatio, 1-inkRatio) / 0.05
	densityScore = math.Min(1, densityScore)

	return aspectScore * densityScore
}

// textBands finds horizontal runs of rows with enough dark pixels to be text
// or card artwork, returning one box per band plus the overall ink ratio.
func textBands(gray *image.Gray, threshold uint8) ([]image.Rectangle, float64) {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, 0
	}

	rowInk := make([]int, h)
	rowMinX := make([]int, h)
	rowMaxX := make([]int, h)
	totalInk := 0
	for y := 0; y < h; y++ {
		rowMinX[y] = w
		rowMaxX[y] = -1
		for x := 0; x < w; x++ {
			if gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y < threshold {
				rowInk[y]++
				totalInk++
				if x < rowMinX[y] {
					rowMinX[y] = x
				}
				if x > rowMaxX[y] {
					rowMaxX[y] = x
				}
			}
		}
	}

	minRowInk := w / 50 // 2% of the width
	if minRowInk < 2 {
		minRowInk = 2
	}

	var bands []image.Rectangle
	bandStart := -1
	minX, maxX := w, -1
	flush := func(end int) {
		if bandStart < 0 {
			return
		}
		if maxX >= minX {
			bands = append(bands, image.Rect(minX, bandStart, maxX+1, end))
		}
		bandStart = -1
		minX, maxX = w, -1
	}
	for y := 0; y < h; y++ {
		if rowInk[y] >= minRowInk {
			if bandStart < 0 {
				bandStart = y
			}
			if rowMinX[y] < minX {
				minX = rowMinX[y]
			}
			if rowMaxX[y] > maxX {
				maxX = rowMaxX[y]
			}
		} else {
			flush(y)
		}
	}
	flush(h)

	return bands, float64(totalInk) / float64(w*h)
}

// bucketRegions assigns text bands to the expected KTP regions. Each region
// keeps only its largest claimant.
func bucketRegions(bands []image.Rectangle, bounds image.Rectangle) map[string]image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w == 0 || h == 0 {
		return nil
	}

	regions := make(map[string]image.Rectangle)
	areas := make(map[string]int)
	for name, rb := range keyRegions {
		for _, band := range bands {
			x1 := float64(band.Min.X) / w
			y1 := float64(band.Min.Y) / h
			if x1 < rb.xMin-regionTolerance || x1 > rb.xMax+regionTolerance {
				continue
			}
			if y1 < rb.yMin-regionTolerance || y1 > rb.yMax+regionTolerance {
				continue
			}
			if area := band.Dx() * band.Dy(); area > areas[name] {
				areas[name] = area
				regions[name] = band
			}
		}
	}
	return regions
}

// otsuThreshold picks the binarization threshold maximizing between-class
// variance of the gray histogram.
func otsuThreshold(gray *image.Gray) uint8 {
	bounds := gray.Bounds()
	var hist [256]int
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var best float64
	threshold := 128
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = t
		}
	}
	return uint8(threshold)
}
