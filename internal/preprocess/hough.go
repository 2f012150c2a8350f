package preprocess

import (
	"image"
	"math"
	"sort"
)

const (
	sobelEdgeThreshold = 128 // gradient magnitude above this is an edge
	houghVoteThreshold = 100 // accumulator votes required to call a line
	maxSkewLines       = 10  // strongest lines considered for the skew median
)

// DetectSkewAngle estimates the document's rotational misalignment in
// degrees. Straight edges are located with a Sobel gradient pass, candidate
// lines with a Hough transform over 1-degree steps, and the skew is the
// median angle of up to the ten strongest lines. ok is false when no line
// clears the vote threshold.
func DetectSkewAngle(g *image.Gray) (angle float64, ok bool) {
	edges := sobelEdges(g)
	w, h := g.Rect.Dx(), g.Rect.Dy()

	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	const thetaSteps = 180
	// Accumulator indexed by [theta][rho+diag].
	acc := make([]int32, thetaSteps*(2*diag+1))

	sins := make([]float64, thetaSteps)
	coss := make([]float64, thetaSteps)
	for t := 0; t < thetaSteps; t++ {
		rad := float64(t) * math.Pi / 180
		sins[t] = math.Sin(rad)
		coss[t] = math.Cos(rad)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edges[y*w+x] {
				continue
			}
			for t := 0; t < thetaSteps; t++ {
				rho := int(math.Round(float64(x)*coss[t] + float64(y)*sins[t]))
				acc[t*(2*diag+1)+rho+diag]++
			}
		}
	}

	type line struct {
		votes int32
		theta int
	}
	var lines []line
	for t := 0; t < thetaSteps; t++ {
		for r := 0; r <= 2*diag; r++ {
			if v := acc[t*(2*diag+1)+r]; v >= houghVoteThreshold {
				lines = append(lines, line{votes: v, theta: t})
			}
		}
	}
	if len(lines) == 0 {
		return 0, false
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].votes > lines[j].votes })
	if len(lines) > maxSkewLines {
		lines = lines[:maxSkewLines]
	}

	angles := make([]float64, len(lines))
	for i, ln := range lines {
		angles[i] = float64(ln.theta) - 90
	}
	sort.Float64s(angles)
	mid := len(angles) / 2
	if len(angles)%2 == 0 {
		return (angles[mid-1] + angles[mid]) / 2, true
	}
	return angles[mid], true
}

// sobelEdges returns a boolean edge map from thresholded Sobel gradient
// magnitude.
func sobelEdges(g *image.Gray) []bool {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	edges := make([]bool, w*h)
	if w < 3 || h < 3 {
		return edges
	}

	at := func(x, y int) int {
		return int(g.GrayAt(g.Rect.Min.X+x, g.Rect.Min.Y+y).Y)
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if math.Hypot(float64(gx), float64(gy)) >= sobelEdgeThreshold {
				edges[y*w+x] = true
			}
		}
	}
	return edges
}
