package extraction

import (
	"fmt"

	"github.com/kbukum/speakerembed/speaker"
)

// Squeeze drops size-1 dimensions from shape, the way a [1, 1, 192] batch
// output becomes [192].
func Squeeze(shape []int64) []int64 {
	out := make([]int64, 0, len(shape))
	for _, d := range shape {
		if d != 1 {
			out = append(out, d)
		}
	}
	return out
}

// flatten returns the tensor data as one vector after checking it agrees
// with the declared shape.
func flatten(t speaker.Tensor) ([]float32, error) {
	if n := t.Elements(); n != int64(len(t.Data)) {
		return nil, fmt.Errorf("model output shape %v holds %d values, got %d", t.Shape, n, len(t.Data))
	}
	return t.Data, nil
}
