package hydro

import "math"

// Brush holds, for every grid node, the nodes within the erosion radius and
// the normalized weight each receives. It is immutable once built and shared
// read-only by all droplets of a pass.
type Brush struct {
	size    int
	radius  int
	indices [][]int32
	weights [][]float64
}

// BuildBrush precomputes brush offsets and weights for a size*size grid.
// Offsets with dist^2 >= radius^2 carry no weight and are skipped; offsets
// falling outside the grid are clipped and the remaining weights renormalized.
func BuildBrush(size, radius int) *Brush {
	b := &Brush{
		size:    size,
		radius:  radius,
		indices: make([][]int32, size*size),
		weights: make([][]float64, size*size),
	}
	if size <= 0 || radius <= 0 {
		return b
	}

	r2 := radius * radius
	span := 2*radius + 1
	offX := make([]int, 0, span*span)
	offY := make([]int, 0, span*span)
	offW := make([]float64, 0, span*span)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			offX, offY, offW = offX[:0], offY[:0], offW[:0]
			sum := 0.0
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= size {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					d2 := dx*dx + dy*dy
					if d2 >= r2 {
						continue
					}
					nx := x + dx
					if nx < 0 || nx >= size {
						continue
					}
					w := 1 - math.Sqrt(float64(d2))/float64(radius)
					if w <= 0 {
						continue
					}
					offX = append(offX, nx)
					offY = append(offY, ny)
					offW = append(offW, w)
					sum += w
				}
			}

			idx := y*size + x
			cellIdx := make([]int32, len(offW))
			cellW := make([]float64, len(offW))
			for i := range offW {
				cellIdx[i] = int32(offY[i]*size + offX[i])
				cellW[i] = offW[i] / sum
			}
			b.indices[idx] = cellIdx
			b.weights[idx] = cellW
		}
	}
	return b
}

// Matches reports whether the brush was built for the given grid and radius.
func (b *Brush) Matches(size, radius int) bool {
	return b != nil && b.size == size && b.radius == radius
}

// Radius returns the erosion radius the brush was built for.
func (b *Brush) Radius() int { return b.radius }

// At returns the linear node indices and weights for the node at (x, y). The
// returned slices must not be modified.
func (b *Brush) At(x, y int) ([]int32, []float64) {
	idx := y*b.size + x
	return b.indices[idx], b.weights[idx]
}
