// Package splat renders 3D Gaussian splat clouds.
//
// # Overview
//
// A splat is an anisotropic 3D Gaussian with a position, a covariance and a
// color. Every frame the pipeline computes the squared distance of each
// splat to the camera, sorts the splats back-to-front, projects each one to
// a screen-space ellipse drawn as a quad, and composites the quads with
// premultiplied source-over blending.
//
// The stages are written as data-parallel kernels (internal/kernels) that
// take a global thread index like their WGSL counterparts, and are run on a
// worker pool on the CPU or on a GPU through the gpu sub-package.
//
// # Quick Start
//
//	f, _ := os.Open("scene.splat")
//	cloud, err := splat.ReadCloud(f)
//	if err != nil {
//	    return err
//	}
//
//	r, err := splat.NewRenderer(800, 600)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	cam := splat.NewCamera(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{})
//	pm, err := r.Render(ctx, cloud, cam)
//	if err != nil {
//	    return err
//	}
//	pm.SavePNG("frame.png")
//
// # Variants
//
// Two numerically distinct projection paths are kept side by side and
// selected with WithVariant:
//   - VariantClassic: SplatC records, clamped Jacobian, low-pass bias and an
//     eigenvalue floor, fragments discarded below an alpha threshold.
//   - VariantCompact: SplatX records, unclamped Jacobian, axes capped at a
//     radius limit, splats with a negative eigenvalue culled.
//
// # Sorting
//
// Sorters return splats ordered by decreasing distance. BitonicSorter runs
// the bitonic network one stage per dispatch; RadixSorter runs a stable
// four-pass LSB radix sort on order-preserving float keys. AsyncSorter
// wraps either to sort off the render goroutine.
//
// SortGPU uses the sorter installed with RegisterSorter. Importing the gpu
// sub-package installs one that runs the same stages as compute shaders:
//
//	import _ "github.com/gogpu/splat/gpu"
//
// # Coordinate System
//
// World space is right-handed with +Y up; cameras look down −Z in view
// space. Pixmap origin (0,0) is the top-left corner.
package splat
