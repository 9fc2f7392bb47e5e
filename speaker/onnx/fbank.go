package onnx

import (
	"math"
	"math/cmplx"
)

// fbankConfig describes the log-mel front end the ECAPA graph was
// exported without: 25 ms Hamming frames every 10 ms, 80 mel bands,
// decibel energies clipped to an 80 dB range, per-utterance mean removal.
type fbankConfig struct {
	sampleRate  int
	numMels     int
	frameLength int
	frameShift  int
	topDB       float64
}

func defaultFbank(sampleRate, numMels int) fbankConfig {
	return fbankConfig{
		sampleRate:  sampleRate,
		numMels:     numMels,
		frameLength: sampleRate * 25 / 1000,
		frameShift:  sampleRate * 10 / 1000,
		topDB:       80,
	}
}

// fbank returns row-major [frames x numMels] features and the frame count.
// Input shorter than one frame is zero padded to a single frame.
func fbank(samples []float32, cfg fbankConfig) ([]float32, int) {
	n := len(samples)
	if n < cfg.frameLength {
		n = cfg.frameLength
	}
	frames := 1 + (n-cfg.frameLength)/cfg.frameShift

	fftSize := 1
	for fftSize < cfg.frameLength {
		fftSize <<= 1
	}
	bins := fftSize/2 + 1

	window := make([]float64, cfg.frameLength)
	for i := range window {
		window[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(cfg.frameLength-1))
	}
	filters := melFilters(cfg.numMels, fftSize, cfg.sampleRate)

	feats := make([]float32, frames*cfg.numMels)
	buf := make([]complex128, fftSize)
	power := make([]float64, bins)
	maxDB := math.Inf(-1)

	for f := 0; f < frames; f++ {
		off := f * cfg.frameShift
		for i := range buf {
			buf[i] = 0
		}
		for i := 0; i < cfg.frameLength && off+i < len(samples); i++ {
			buf[i] = complex(float64(samples[off+i])*window[i], 0)
		}
		fft(buf)
		for k := 0; k < bins; k++ {
			a := cmplx.Abs(buf[k])
			power[k] = a * a
		}

		row := feats[f*cfg.numMels : (f+1)*cfg.numMels]
		for m, filter := range filters {
			var e float64
			for k := filter.start; k < filter.start+len(filter.weights); k++ {
				e += filter.weights[k-filter.start] * power[k]
			}
			db := 10 * math.Log10(math.Max(e, 1e-10))
			if db > maxDB {
				maxDB = db
			}
			row[m] = float32(db)
		}
	}

	floor := float32(maxDB - cfg.topDB)
	means := make([]float64, cfg.numMels)
	for i, v := range feats {
		if v < floor {
			v = floor
			feats[i] = v
		}
		means[i%cfg.numMels] += float64(v)
	}
	for m := range means {
		means[m] /= float64(frames)
	}
	for i := range feats {
		feats[i] -= float32(means[i%cfg.numMels])
	}
	return feats, frames
}

type melFilter struct {
	start   int
	weights []float64
}

func melFilters(numMels, fftSize, sampleRate int) []melFilter {
	toMel := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	toHz := func(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

	bins := fftSize/2 + 1
	lo, hi := toMel(0), toMel(float64(sampleRate)/2)
	edges := make([]float64, numMels+2)
	for i := range edges {
		edges[i] = toHz(lo + float64(i)*(hi-lo)/float64(numMels+1))
	}
	binHz := float64(sampleRate) / float64(fftSize)

	filters := make([]melFilter, numMels)
	for m := range filters {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		start := int(math.Ceil(left / binHz))
		end := int(math.Floor(right / binHz))
		if end >= bins {
			end = bins - 1
		}
		var w []float64
		for k := start; k <= end; k++ {
			hz := float64(k) * binHz
			switch {
			case hz <= center && center > left:
				w = append(w, (hz-left)/(center-left))
			case hz > center && right > center:
				w = append(w, (right-hz)/(right-center))
			default:
				w = append(w, 0)
			}
		}
		filters[m] = melFilter{start: start, weights: w}
	}
	return filters
}

// fft is an in-place iterative radix-2 transform; len(x) must be a power of two.
func fft(x []complex128) {
	n := len(x)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}
	for size := 2; size <= n; size <<= 1 {
		step := cmplx.Exp(complex(0, -2*math.Pi/float64(size)))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < size/2; k++ {
				a, b := x[start+k], x[start+k+size/2]*w
				x[start+k], x[start+k+size/2] = a+b, a-b
				w *= step
			}
		}
	}
}
