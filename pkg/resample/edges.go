package resample

// EdgeMask marks the boundary pixels of the labeled regions in a resampled
// label image. A pixel is a boundary pixel when its label exceeds the
// threshold and at least one 4-neighbor does not share its label. This is a
// post-pass over the already-resampled 2D image: detecting edges in 3D and
// then resampling would smear the one-pixel outline the overlay draws.
func EdgeMask(label *Image, threshold float64) []bool {
	w, h := label.Width, label.Height
	mask := make([]bool, w*h)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			v := label.At(i, j)
			if v <= threshold {
				continue
			}
			if i == 0 || j == 0 || i == w-1 || j == h-1 {
				// Image border counts as outside the region.
				mask[j*w+i] = true
				continue
			}
			if label.At(i-1, j) != v || label.At(i+1, j) != v ||
				label.At(i, j-1) != v || label.At(i, j+1) != v {
				mask[j*w+i] = true
			}
		}
	}
	return mask
}
