// Command splatdemo renders a Gaussian splat cloud to a PNG file.
//
// Without -input it renders a random cloud, which -save can write out as
// a ".splat" file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/splat"
	_ "github.com/gogpu/splat/gpu" // registers the GPU sorter for -sort gpu
)

func main() {
	var (
		width   = flag.Int("width", 800, "image width")
		height  = flag.Int("height", 600, "image height")
		output  = flag.String("output", "splat.png", "output file")
		input   = flag.String("input", "", "\".splat\" file to render (default: random cloud)")
		save    = flag.String("save", "", "write the random cloud to this \".splat\" file")
		count   = flag.Int("count", 20000, "random cloud size")
		seed    = flag.Uint64("seed", 1, "random cloud seed")
		variant = flag.String("variant", "classic", "render path: classic or compact")
		sortBy  = flag.String("sort", "bitonic", "sort method: bitonic, radix or gpu")
		debug   = flag.Bool("debug", false, "render splats as red/green debug quads")
		dist    = flag.Float64("distance", 6, "camera distance from the origin")
	)
	flag.Parse()

	v, err := parseVariant(*variant)
	if err != nil {
		log.Fatal(err)
	}
	m, err := parseSortMethod(*sortBy)
	if err != nil {
		log.Fatal(err)
	}

	cloud, err := loadCloud(*input, *save, *count, *seed)
	if err != nil {
		log.Fatalf("Failed to load cloud: %v", err)
	}

	r, err := splat.NewRenderer(*width, *height,
		splat.WithVariant(v),
		splat.WithSortMethod(m),
		splat.WithDebug(*debug))
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer r.Close()

	cam := splat.NewCamera(mgl32.Vec3{0, 0, float32(*dist)}, mgl32.Vec3{})
	start := time.Now()
	pm, err := r.Render(context.Background(), cloud, cam)
	if err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	elapsed := time.Since(start)

	if err := pm.SavePNG(*output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Rendered %d splats (%s, %s sort) to %s (%dx%d) in %v\n",
		cloud.Len(), v, m, *output, *width, *height, elapsed)
}

func parseVariant(s string) (splat.Variant, error) {
	switch s {
	case "classic":
		return splat.VariantClassic, nil
	case "compact":
		return splat.VariantCompact, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", s)
	}
}

func parseSortMethod(s string) (splat.SortMethod, error) {
	switch s {
	case "bitonic":
		return splat.SortBitonic, nil
	case "radix":
		return splat.SortRadix, nil
	case "gpu":
		return splat.SortGPU, nil
	default:
		return 0, fmt.Errorf("unknown sort method %q", s)
	}
}

func loadCloud(input, save string, count int, seed uint64) (*splat.Cloud, error) {
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return splat.ReadCloud(f)
	}

	splats := randomSplats(count, seed)
	if save != "" {
		f, err := os.Create(save)
		if err != nil {
			return nil, err
		}
		if _, err := splat.WriteSplats(f, splats); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	}
	return splat.NewCloud(splats), nil
}

// randomSplats scatters splats over a sphere shell with random rotations
// and colors.
func randomSplats(n int, seed uint64) []splat.SplatB {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]splat.SplatB, n)
	for i := range out {
		theta := rng.Float64() * 2 * math.Pi
		phi := math.Acos(2*rng.Float64() - 1)
		r := 1.5 + 0.3*rng.Float64()
		s := 0.01 + 0.04*rng.Float32()

		axis := mgl32.Vec3{float32(rng.NormFloat64()), float32(rng.NormFloat64()), 1}.Normalize()
		d := splat.SplatD{
			Position: mgl32.Vec3{
				float32(r * math.Sin(phi) * math.Cos(theta)),
				float32(r * math.Cos(phi)),
				float32(r * math.Sin(phi) * math.Sin(theta)),
			},
			Scale: mgl32.Vec3{s, s * 0.5, s * 0.25},
			Color: mgl32.Vec4{
				float32(0.5 + 0.5*math.Cos(theta)),
				float32(0.5 + 0.5*math.Cos(phi)),
				rng.Float32(),
				0.6 + 0.4*rng.Float32(),
			},
			Rotation: mgl32.QuatRotate(rng.Float32()*2*math.Pi, axis),
		}
		out[i] = d.ToSplatB()
	}
	return out
}
