package recognition

import (
	"image"
	"image/color"
	"math"
)

type point struct {
	X, Y float64
}

// detectCardQuad finds the four corners of the dominant rectangular object in
// the image: Sobel edge map, dilation to close the outline, largest connected
// edge component, then its extremal corners. Returns false when the best
// candidate covers less than minArea pixels or degenerates to a sliver.
func detectCardQuad(img image.Image, minArea float64) ([4]point, bool) {
	gray := toGray(img)
	edges := sobelEdges(gray, 30)
	dilated := dilateGray(edges, 5, 1)

	corners, area, ok := largestComponentCorners(dilated)
	if !ok || area < minArea {
		return [4]point{}, false
	}

	quad := orderPoints(corners)
	if quadArea(quad) < minArea {
		return [4]point{}, false
	}
	// Reject slivers: a card quad keeps both dimensions meaningful.
	w := math.Hypot(quad[1].X-quad[0].X, quad[1].Y-quad[0].Y)
	h := math.Hypot(quad[3].X-quad[0].X, quad[3].Y-quad[0].Y)
	if w < 20 || h < 20 {
		return [4]point{}, false
	}
	return quad, true
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

func sobelEdges(gray *image.Gray, threshold float64) *image.Gray {
	bounds := gray.Bounds()
	edges := image.NewGray(bounds)

	gx := [3][3]int{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	gy := [3][3]int{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			var sumX, sumY float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					pixel := float64(gray.GrayAt(x+kx, y+ky).Y)
					sumX += pixel * float64(gx[ky+1][kx+1])
					sumY += pixel * float64(gy[ky+1][kx+1])
				}
			}
			if math.Sqrt(sumX*sumX+sumY*sumY) > threshold {
				edges.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return edges
}

func dilateGray(img *image.Gray, kernelSize, iterations int) *image.Gray {
	bounds := img.Bounds()
	result := img
	half := kernelSize / 2

	for iter := 0; iter < iterations; iter++ {
		temp := image.NewGray(bounds)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				var maxVal uint8
				for ky := -half; ky <= half; ky++ {
					for kx := -half; kx <= half; kx++ {
						px, py := x+kx, y+ky
						if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
							continue
						}
						if v := result.GrayAt(px, py).Y; v > maxVal {
							maxVal = v
						}
					}
				}
				temp.SetGray(x, y, color.Gray{Y: maxVal})
			}
		}
		result = temp
	}
	return result
}

// largestComponentCorners flood-fills the white regions of a binary mask and
// returns the extremal corner candidates of the biggest one along with its
// pixel count.
func largestComponentCorners(mask *image.Gray) ([]point, float64, bool) {
	bounds := mask.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	visited := make([]bool, w*h)

	var best []point
	var bestCount int

	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			idx := sy*w + sx
			if visited[idx] || mask.GrayAt(bounds.Min.X+sx, bounds.Min.Y+sy).Y == 0 {
				continue
			}

			// BFS over this component, tracking the four extremal
			// points by coordinate sum and difference.
			count := 0
			minSum, maxSum := math.Inf(1), math.Inf(-1)
			minDiff, maxDiff := math.Inf(1), math.Inf(-1)
			var tl, br, tr, bl point

			queue := []int{idx}
			visited[idx] = true
			for len(queue) > 0 {
				cur := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				cx, cy := cur%w, cur/w
				count++

				fx, fy := float64(cx), float64(cy)
				if s := fx + fy; s < minSum {
					minSum, tl = s, point{fx, fy}
				}
				if s := fx + fy; s > maxSum {
					maxSum, br = s, point{fx, fy}
				}
				if d := fy - fx; d < minDiff {
					minDiff, tr = d, point{fx, fy}
				}
				if d := fy - fx; d > maxDiff {
					maxDiff, bl = d, point{fx, fy}
				}

				for _, off := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := cx+off[0], cy+off[1]
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					nidx := ny*w + nx
					if visited[nidx] || mask.GrayAt(bounds.Min.X+nx, bounds.Min.Y+ny).Y == 0 {
						continue
					}
					visited[nidx] = true
					queue = append(queue, nidx)
				}
			}

			if count > bestCount {
				bestCount = count
				best = []point{tl, tr, br, bl}
			}
		}
	}

	if bestCount == 0 {
		return nil, 0, false
	}
	return best, float64(bestCount), true
}

// orderPoints arranges four corners clockwise from top-left using the
// coordinate sum/difference rule: top-left has the smallest sum, bottom-right
// the largest, top-right the smallest y-x difference, bottom-left the largest.
func orderPoints(pts []point) [4]point {
	var rect [4]point
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	minDiff, maxDiff := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		sum := p.X + p.Y
		diff := p.Y - p.X
		if sum < minSum {
			minSum, rect[0] = sum, p
		}
		if sum > maxSum {
			maxSum, rect[2] = sum, p
		}
		if diff < minDiff {
			minDiff, rect[1] = diff, p
		}
		if diff > maxDiff {
			maxDiff, rect[3] = diff, p
		}
	}
	return rect
}

// quadArea computes the shoelace area of an ordered quad.
func quadArea(q [4]point) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		sum += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return math.Abs(sum) / 2
}

// warpPerspective maps the ordered source quad onto a w x h rectangle using
// the homography through the four corner pairs, sampling bilinearly.
func warpPerspective(img image.Image, quad [4]point, w, h int) *image.NRGBA {
	dst := [4]point{
		{0, 0},
		{float64(w - 1), 0},
		{float64(w - 1), float64(h - 1)},
		{0, float64(h - 1)},
	}

	// Solve for the homography from destination to source so each output
	// pixel maps straight back into the input image.
	m, ok := homography(dst, quad)
	if !ok {
		return nil
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x), float64(y)
			denom := m[6]*fx + m[7]*fy + m[8]
			if denom == 0 {
				continue
			}
			sx := (m[0]*fx + m[1]*fy + m[2]) / denom
			sy := (m[3]*fx + m[4]*fy + m[5]) / denom
			out.Set(x, y, bilinearSample(img, bounds, sx, sy))
		}
	}
	return out
}

func bilinearSample(img image.Image, bounds image.Rectangle, x, y float64) color.NRGBA {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	sample := func(px, py int) (float64, float64, float64, float64) {
		px = clampInt(px, bounds.Min.X, bounds.Max.X-1)
		py = clampInt(py, bounds.Min.Y, bounds.Max.Y-1)
		r, g, b, a := img.At(px, py).RGBA()
		return float64(r >> 8), float64(g >> 8), float64(b >> 8), float64(a >> 8)
	}

	r00, g00, b00, a00 := sample(x0, y0)
	r10, g10, b10, a10 := sample(x0+1, y0)
	r01, g01, b01, a01 := sample(x0, y0+1)
	r11, g11, b11, a11 := sample(x0+1, y0+1)

	lerp2 := func(v00, v10, v01, v11 float64) uint8 {
		top := v00*(1-fx) + v10*fx
		bot := v01*(1-fx) + v11*fx
		return uint8(math.Round(top*(1-fy) + bot*fy))
	}

	return color.NRGBA{
		R: lerp2(r00, r10, r01, r11),
		G: lerp2(g00, g10, g01, g11),
		B: lerp2(b00, b10, b01, b11),
		A: lerp2(a00, a10, a01, a11),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// homography solves the 3x3 projective transform taking src[i] to dst[i] for
// four point pairs, returned row-major with m[8] fixed to 1.
func homography(src, dst [4]point) ([9]float64, bool) {
	// Eight equations in the eight unknowns h0..h7.
	var a [8][9]float64
	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		a[2*i] = [9]float64{sx, sy, 1, 0, 0, 0, -dx * sx, -dx * sy, dx}
		a[2*i+1] = [9]float64{0, 0, 0, sx, sy, 1, -dy * sx, -dy * sy, dy}
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < 8; col++ {
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return [9]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]

		for row := 0; row < 8; row++ {
			if row == col {
				continue
			}
			factor := a[row][col] / a[col][col]
			for k := col; k < 9; k++ {
				a[row][k] -= factor * a[col][k]
			}
		}
	}

	var m [9]float64
	for i := 0; i < 8; i++ {
		m[i] = a[i][8] / a[i][i]
	}
	m[8] = 1
	return m, true
}
