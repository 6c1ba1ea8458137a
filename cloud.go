package splat

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/splat/internal/kernels"
)

// Cloud is a set of splats ready for rendering. It holds the per-variant
// render records together with the positions each variant is sorted on. A
// cloud built from SplatB records carries both variants.
//
// Clouds are not safe for concurrent mutation. Rendering only reads them.
type Cloud struct {
	// Model places the cloud in the world. NewCloud sets it to identity.
	Model mgl32.Mat4

	n int

	// Sort positions match the position each vertex stage projects: the
	// half-rounded center for classic, the full-precision one for compact.
	classicPositions []mgl32.Vec3
	compactPositions []mgl32.Vec3

	classic []kernels.CovSplat
	compact []kernels.CompactSplat
}

// NewCloud converts file records to both render encodings.
func NewCloud(splats []SplatB) *Cloud {
	c := &Cloud{
		Model:            mgl32.Ident4(),
		classicPositions: []mgl32.Vec3{},
		compactPositions: []mgl32.Vec3{},
		classic:          []kernels.CovSplat{},
		compact:          []kernels.CompactSplat{},
	}
	c.Append(splats...)
	return c
}

// NewCloudC builds a classic-only cloud.
func NewCloudC(splats []SplatC) *Cloud {
	c := &Cloud{
		Model:            mgl32.Ident4(),
		n:                len(splats),
		classicPositions: make([]mgl32.Vec3, len(splats)),
		classic:          make([]kernels.CovSplat, len(splats)),
	}
	for i, s := range splats {
		c.classic[i] = s.covSplat()
		c.classicPositions[i] = c.classic[i].Position
	}
	return c
}

// NewCloudX builds a compact-only cloud.
func NewCloudX(splats []SplatX) *Cloud {
	c := &Cloud{
		Model:            mgl32.Ident4(),
		n:                len(splats),
		compactPositions: make([]mgl32.Vec3, len(splats)),
		compact:          make([]kernels.CompactSplat, len(splats)),
	}
	for i, s := range splats {
		c.compact[i] = s.compactSplat()
		c.compactPositions[i] = s.Position
	}
	return c
}

// Append converts and adds file records. It panics if the cloud was built
// from a single render encoding.
func (c *Cloud) Append(splats ...SplatB) {
	if !c.Supports(VariantClassic) || !c.Supports(VariantCompact) {
		panic("splat: Append on a single-variant cloud")
	}
	for _, s := range splats {
		sc := s.ToSplatC().covSplat()
		sx := s.ToSplatX()
		c.classic = append(c.classic, sc)
		c.compact = append(c.compact, sx.compactSplat())
		c.classicPositions = append(c.classicPositions, sc.Position)
		c.compactPositions = append(c.compactPositions, sx.Position)
	}
	c.n += len(splats)
}

// Len returns the number of splats.
func (c *Cloud) Len() int {
	if c == nil {
		return 0
	}
	return c.n
}

// Positions returns the splat centers in model space, as the classic
// variant projects them when the cloud carries it. The slice is shared with
// the cloud and must not be modified.
func (c *Cloud) Positions() []mgl32.Vec3 {
	if c.Supports(VariantClassic) {
		return c.classicPositions
	}
	return c.compactPositions
}

// PositionsFor returns the centers variant v projects, or nil when the
// cloud does not carry v. The slice is shared with the cloud and must not
// be modified.
func (c *Cloud) PositionsFor(v Variant) []mgl32.Vec3 {
	if !c.Supports(v) {
		return nil
	}
	if v == VariantCompact {
		return c.compactPositions
	}
	return c.classicPositions
}

// Supports reports whether the cloud carries records for v.
func (c *Cloud) Supports(v Variant) bool {
	switch v {
	case VariantClassic:
		return c.classic != nil && len(c.classic) == c.n
	case VariantCompact:
		return c.compact != nil && len(c.compact) == c.n
	default:
		return false
	}
}

// ReadSplats decodes ".splat" records until EOF. A trailing partial record
// is reported as ErrShortRecord.
func ReadSplats(r io.Reader) ([]SplatB, error) {
	br := bufio.NewReader(r)
	var (
		out []SplatB
		buf [SplatBSize]byte
	)
	for {
		n, err := io.ReadFull(br, buf[:])
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return out, fmt.Errorf("splat: record %d: %d of %d bytes: %w", len(out), n, SplatBSize, ErrShortRecord)
		}
		if err != nil {
			return out, fmt.Errorf("splat: read record %d: %w", len(out), err)
		}
		var s SplatB
		if err := s.UnmarshalBinary(buf[:]); err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

// WriteSplats encodes records in ".splat" layout.
func WriteSplats(w io.Writer, splats []SplatB) (int64, error) {
	bw := bufio.NewWriter(w)
	var (
		written int64
		buf     = make([]byte, 0, SplatBSize)
	)
	for i, s := range splats {
		buf, _ = s.AppendBinary(buf[:0])
		n, err := bw.Write(buf)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("splat: write record %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("splat: flush: %w", err)
	}
	return written, nil
}

// ReadCloud decodes a ".splat" stream into a cloud carrying both variants.
func ReadCloud(r io.Reader) (*Cloud, error) {
	splats, err := ReadSplats(r)
	if err != nil {
		return nil, err
	}
	if len(splats) == 0 {
		return nil, ErrEmptyCloud
	}
	Logger().Debug("splat: cloud loaded", "splats", len(splats))
	return NewCloud(splats), nil
}
