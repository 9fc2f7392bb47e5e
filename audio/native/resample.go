package native

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// resample converts mono samples from inRate to outRate. The output always
// has round(len(in) * outRate / inRate) samples so durations are preserved
// regardless of filter latency.
func resample(in []float32, inRate, outRate int) ([]float32, error) {
	if inRate == outRate || len(in) == 0 {
		return in, nil
	}
	want := int(math.Round(float64(len(in)) * float64(outRate) / float64(inRate)))

	var rs resampling.Resampler
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	input := make([]float64, len(in))
	for i, s := range in {
		input[i] = float64(s)
	}
	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	if f, ok := rs.(interface{ Flush() ([]float64, error) }); ok && len(output) < want {
		tail, err := f.Flush()
		if err != nil {
			return nil, fmt.Errorf("resample flush: %w", err)
		}
		output = append(output, tail...)
	}

	out := make([]float32, want)
	for i := 0; i < want && i < len(output); i++ {
		out[i] = float32(output[i])
	}
	return out, nil
}
