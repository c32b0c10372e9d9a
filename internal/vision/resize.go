package vision

// ResizeArea resamples a frame to the target shape using area-weighted
// averaging: each destination pixel is the mean of the source region it
// covers, with fractional edge rows/columns weighted by their overlap.
// For integer downscale factors this reduces to a plain box filter.
// Returns an empty frame if either shape is invalid.
func ResizeArea(src Frame, rows, cols int) Frame {
	if src.Empty() || rows <= 0 || cols <= 0 {
		return Frame{}
	}
	if src.Rows == rows && src.Cols == cols {
		return src.Clone()
	}

	out := NewFrame(rows, cols)
	scaleY := float64(src.Rows) / float64(rows)
	scaleX := float64(src.Cols) / float64(cols)

	for dy := 0; dy < rows; dy++ {
		sy0 := float64(dy) * scaleY
		sy1 := float64(dy+1) * scaleY
		y0 := int(sy0)
		y1 := clampInt(ceilInt(sy1), src.Rows)

		for dx := 0; dx < cols; dx++ {
			sx0 := float64(dx) * scaleX
			sx1 := float64(dx+1) * scaleX
			x0 := int(sx0)
			x1 := clampInt(ceilInt(sx1), src.Cols)

			var sum, area float64
			for y := y0; y < y1; y++ {
				wy := 1.0
				if float64(y) < sy0 {
					wy -= sy0 - float64(y)
				}
				if float64(y+1) > sy1 {
					wy -= float64(y+1) - sy1
				}
				rowBase := y * src.Cols
				for x := x0; x < x1; x++ {
					wx := 1.0
					if float64(x) < sx0 {
						wx -= sx0 - float64(x)
					}
					if float64(x+1) > sx1 {
						wx -= float64(x+1) - sx1
					}
					w := wy * wx
					sum += w * float64(src.Pix[rowBase+x])
					area += w
				}
			}
			if area > 0 {
				out.Set(dy, dx, float32(sum/area))
			}
		}
	}
	return out
}

func ceilInt(v float64) int {
	i := int(v)
	if float64(i) < v {
		return i + 1
	}
	return i
}

func clampInt(v, max int) int {
	if v > max {
		return max
	}
	return v
}
