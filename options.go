package splat

import "github.com/go-gl/mathgl/mgl32"

// Variant selects the projection and compositing path.
type Variant int

const (
	// VariantClassic projects CovSplat records (from SplatC) with a clamped
	// Jacobian, a low-pass bias and the eigenvalue floor, and composites
	// with the discard-threshold fragment stage.
	VariantClassic Variant = iota

	// VariantCompact projects CompactSplat records (from SplatX) with an
	// unclamped Jacobian, caps axes at the radius cap and culls splats with
	// a negative eigenvalue.
	VariantCompact
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantClassic:
		return "Classic"
	case VariantCompact:
		return "Compact"
	default:
		return "Unknown"
	}
}

// SortMethod selects how splats are ordered back-to-front.
type SortMethod int

const (
	// SortBitonic runs the bitonic network on the CPU worker pool.
	SortBitonic SortMethod = iota

	// SortRadix runs the four-pass LSB radix sort on the CPU worker pool.
	SortRadix

	// SortGPU uses the sorter registered with RegisterSorter and falls back
	// to SortBitonic when none is registered.
	SortGPU
)

// String returns the sort method name.
func (m SortMethod) String() string {
	switch m {
	case SortBitonic:
		return "Bitonic"
	case SortRadix:
		return "Radix"
	case SortGPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// Config holds the tunables of the splat pipeline.
// Use DefaultConfig or NewConfig; the zero value is not usable.
type Config struct {
	Variant Variant

	// LowPassBias is added to both diagonal terms of the screen-space
	// covariance (classic variant).
	LowPassBias float32

	// EigenFloor is the lower bound of sqrt(mean² − det) (classic variant).
	EigenFloor float32

	// RadiusCap bounds each ellipse axis in pixels (compact variant).
	RadiusCap float32

	// LimitFactor scales tan(fov/2) to the x/z, y/z clamp of the Jacobian.
	LimitFactor float32

	// CullBound is the clip-space margin, in units of w, beyond which a
	// splat is replaced by the cull sentinel.
	CullBound float32

	// DiscardRate is the alpha below which fragments are discarded.
	DiscardRate float32

	SortMethod SortMethod

	// Sorter overrides SortMethod when non-nil.
	Sorter Sorter

	// RenderScale renders at size/RenderScale and upscales the result.
	RenderScale float32

	// FieldOfView is the vertical field of view in radians, used when the
	// camera does not set one.
	FieldOfView float32

	// Debug colors the two triangles of every quad instead of shading the
	// Gaussian falloff.
	Debug bool

	// Counters receives vertex-stage telemetry when non-nil.
	Counters *Counters

	// Workers is the worker pool size; zero or negative means GOMAXPROCS.
	Workers int
}

// Option configures a Config.
//
// Example:
//
//	r, err := splat.NewRenderer(800, 600,
//	    splat.WithVariant(splat.VariantCompact),
//	    splat.WithSortMethod(splat.SortRadix),
//	)
type Option func(*Config)

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Variant:     VariantClassic,
		LowPassBias: 0.3,
		EigenFloor:  0.1,
		RadiusCap:   1024,
		LimitFactor: 1.3,
		CullBound:   1.2,
		DiscardRate: 1.0 / 255,
		SortMethod:  SortBitonic,
		RenderScale: 1,
		FieldOfView: mgl32.DegToRad(90),
	}
}

// NewConfig returns DefaultConfig with opts applied.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithVariant selects the projection and compositing path.
func WithVariant(v Variant) Option {
	return func(c *Config) {
		c.Variant = v
	}
}

// WithLowPassBias sets the screen-space covariance bias.
func WithLowPassBias(bias float32) Option {
	return func(c *Config) {
		c.LowPassBias = bias
	}
}

// WithEigenFloor sets the lower bound of the eigenvalue spread.
func WithEigenFloor(floor float32) Option {
	return func(c *Config) {
		c.EigenFloor = floor
	}
}

// WithRadiusCap sets the per-axis pixel cap of the compact variant.
func WithRadiusCap(px float32) Option {
	return func(c *Config) {
		c.RadiusCap = px
	}
}

// WithLimitFactor sets the factor applied to tan(fov/2) when clamping the
// Jacobian.
func WithLimitFactor(f float32) Option {
	return func(c *Config) {
		c.LimitFactor = f
	}
}

// WithCullBound sets the clip-space cull margin in units of w.
func WithCullBound(b float32) Option {
	return func(c *Config) {
		c.CullBound = b
	}
}

// WithDiscardRate sets the fragment alpha threshold.
func WithDiscardRate(rate float32) Option {
	return func(c *Config) {
		c.DiscardRate = rate
	}
}

// WithSortMethod selects a built-in sorter.
func WithSortMethod(m SortMethod) Option {
	return func(c *Config) {
		c.SortMethod = m
	}
}

// WithSorter injects a custom sorter, for example one from the gpu package.
// It takes precedence over WithSortMethod.
func WithSorter(s Sorter) Option {
	return func(c *Config) {
		c.Sorter = s
	}
}

// WithRenderScale renders at a reduced resolution and upscales the result.
// A scale of 2 renders a quarter of the pixels.
func WithRenderScale(scale float32) Option {
	return func(c *Config) {
		c.RenderScale = scale
	}
}

// WithFieldOfView sets the default vertical field of view in radians.
func WithFieldOfView(fovy float32) Option {
	return func(c *Config) {
		c.FieldOfView = fovy
	}
}

// WithDebug enables the triangle-coloring debug output.
func WithDebug(on bool) Option {
	return func(c *Config) {
		c.Debug = on
	}
}

// WithCounters collects submitted/culled vertex counts into c.
func WithCounters(counters *Counters) Option {
	return func(c *Config) {
		c.Counters = counters
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}
