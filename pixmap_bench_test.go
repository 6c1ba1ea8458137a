package splat

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// BenchmarkPixmap_Blend measures source-over compositing of a full row.
func BenchmarkPixmap_Blend(b *testing.B) {
	pm := NewPixmap(1000, 1000)
	src := mgl32.Vec4{0.2, 0.1, 0.05, 0.4}

	spans := []struct {
		name   string
		pixels int
	}{
		{"10px", 10},
		{"100px", 100},
		{"1000px", 1000},
	}
	for _, span := range spans {
		b.Run(span.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				for x := 0; x < span.pixels; x++ {
					pm.Blend(x, 500, src)
				}
			}
		})
	}
}

// BenchmarkPixmap_Scale measures the render-scale upscale.
func BenchmarkPixmap_Scale(b *testing.B) {
	scales := []struct {
		name string
		w, h int
	}{
		{"1.5x", 512, 512},
		{"2x", 384, 384},
	}
	for _, sc := range scales {
		b.Run(sc.name, func(b *testing.B) {
			pm := NewPixmap(sc.w, sc.h)
			pm.Clear(mgl32.Vec4{0.5, 0.25, 0.125, 1})
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = pm.Scale(768, 768)
			}
		})
	}
}

// BenchmarkPixmap_ToImage measures the 8-bit conversion used by SavePNG.
func BenchmarkPixmap_ToImage(b *testing.B) {
	pm := NewPixmap(1920, 1080)
	pm.Clear(mgl32.Vec4{0.5, 0.25, 0.125, 1})
	b.SetBytes(int64(1920 * 1080 * 4))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pm.ToImage()
	}
}
