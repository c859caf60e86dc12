package tzraster

import (
	"image"
	"image/draw"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/vector"
)

// orientPolygon winds the outer ring counter-clockwise and holes clockwise,
// so holes cancel out under the rasterizer's nonzero accumulation.
func orientPolygon(p orb.Polygon) orb.Polygon {
	result := make(orb.Polygon, 0, len(p))
	for idx, ring := range p {
		want := orb.CW
		if idx == 0 {
			want = orb.CCW
		}
		if ring.Orientation() != want {
			ring = ring.Clone()
			ring.Reverse()
		}
		result = append(result, ring)
	}
	return result
}

func orientMultiPolygon(mp orb.MultiPolygon) orb.MultiPolygon {
	result := make(orb.MultiPolygon, 0, len(mp))
	for _, p := range mp {
		if len(p) == 0 {
			continue
		}
		result = append(result, orientPolygon(p))
	}
	return result
}

// projection maps the extent onto the image rectangle, north up.
type projection struct {
	minX, maxY float64
	sx, sy     float64
}

func newProjection(extent orb.Bound, width, height int) projection {
	dx := extent.Max[0] - extent.Min[0]
	dy := extent.Max[1] - extent.Min[1]
	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	return projection{
		minX: extent.Min[0],
		maxY: extent.Max[1],
		sx:   float64(width) / dx,
		sy:   float64(height) / dy,
	}
}

func (p projection) point(pt orb.Point) (float64, float64) {
	return (pt[0] - p.minX) * p.sx, (p.maxY - pt[1]) * p.sy
}

// pixelBounds is the smallest pixel rectangle covering b, grown by pad.
func (p projection) pixelBounds(b orb.Bound, pad float64) image.Rectangle {
	x0, y0 := p.point(orb.Point{b.Min[0], b.Max[1]})
	x1, y1 := p.point(orb.Point{b.Max[0], b.Min[1]})
	return image.Rect(
		int(math.Floor(x0-pad)), int(math.Floor(y0-pad)),
		int(math.Ceil(x1+pad)), int(math.Ceil(y1+pad)),
	)
}

// bandRasterizer draws features into one band of the output image. Each
// worker owns one; it is not safe for concurrent use.
type bandRasterizer struct {
	proj         projection
	antialiasing bool
	z            *vector.Rasterizer
	coverage     []uint8
}

func newBandRasterizer(proj projection, antialiasing bool) *bandRasterizer {
	return &bandRasterizer{proj: proj, antialiasing: antialiasing, z: vector.NewRasterizer(0, 0)}
}

// drawFeature paints f into dst, touching only pixels inside clip.
func (b *bandRasterizer) drawFeature(dst *image.NRGBA, clip image.Rectangle, f *Feature, bound orb.Bound) int {
	sym := f.symbol
	painted := 0

	r := b.proj.pixelBounds(bound, 1).Intersect(clip)
	if !r.Empty() {
		b.begin(r)
		for _, polygon := range f.Geometry {
			for _, ring := range polygon {
				b.ring(r, ring)
			}
		}
		painted += b.composite(dst, r, sym.Color)
	}

	if sym.stroked() {
		half := sym.StrokeWidth / 2
		r = b.proj.pixelBounds(bound, half+1).Intersect(clip)
		if !r.Empty() {
			b.begin(r)
			for _, polygon := range f.Geometry {
				for _, ring := range polygon {
					b.outline(r, ring, half)
				}
			}
			painted += b.composite(dst, r, sym.StrokeColor)
		}
	}
	return painted
}

func (b *bandRasterizer) begin(r image.Rectangle) {
	b.z.Reset(r.Dx(), r.Dy())
	b.z.DrawOp = draw.Src
}

func (b *bandRasterizer) ring(r image.Rectangle, ring orb.Ring) {
	if len(ring) < 3 {
		return
	}
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for idx, pt := range ring {
		x, y := b.proj.point(pt)
		if idx == 0 {
			b.z.MoveTo(float32(x-ox), float32(y-oy))
		} else {
			b.z.LineTo(float32(x-ox), float32(y-oy))
		}
	}
	b.z.ClosePath()
}

// outline adds one quad per ring edge, half pixels to either side.
func (b *bandRasterizer) outline(r image.Rectangle, ring orb.Ring, half float64) {
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for i := 1; i < len(ring); i++ {
		ax, ay := b.proj.point(ring[i-1])
		bx, by := b.proj.point(ring[i])
		dx, dy := bx-ax, by-ay
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*half, dx/length*half
		b.z.MoveTo(float32(ax+nx-ox), float32(ay+ny-oy))
		b.z.LineTo(float32(bx+nx-ox), float32(by+ny-oy))
		b.z.LineTo(float32(bx-nx-ox), float32(by-ny-oy))
		b.z.LineTo(float32(ax-nx-ox), float32(ay-ny-oy))
		b.z.ClosePath()
	}
}

// composite rasterizes the accumulated path and paints it in c. Without
// antialiasing a pixel takes c only when at least half of it is covered.
func (b *bandRasterizer) composite(dst *image.NRGBA, r image.Rectangle, c Color) int {
	w, h := r.Dx(), r.Dy()
	if cap(b.coverage) < w*h {
		b.coverage = make([]uint8, w*h)
	}
	mask := &image.Alpha{Pix: b.coverage[:w*h], Stride: w, Rect: image.Rect(0, 0, w, h)}
	b.z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	cr, cg, cb := c.RGB()
	painted := 0
	for y := 0; y < h; y++ {
		row := dst.PixOffset(r.Min.X, r.Min.Y+y)
		for x := 0; x < w; x++ {
			a := mask.Pix[y*w+x]
			if a == 0 {
				continue
			}
			px := dst.Pix[row+x*4 : row+x*4+4 : row+x*4+4]
			if !b.antialiasing {
				if a < 0x80 {
					continue
				}
				px[0], px[1], px[2], px[3] = cr, cg, cb, 0xFF
				painted++
				continue
			}
			px[0] = blend(px[0], cr, a)
			px[1] = blend(px[1], cg, a)
			px[2] = blend(px[2], cb, a)
			px[3] = 0xFF
			painted++
		}
	}
	return painted
}

func blend(dst, src, a uint8) uint8 {
	return uint8((uint32(src)*uint32(a) + uint32(dst)*(255-uint32(a)) + 127) / 255)
}
