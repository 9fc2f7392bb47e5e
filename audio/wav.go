package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV format tags accepted by DecodeWAV.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV decodes an integer PCM WAV stream (8, 16, 24 or 32 bit).
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("wav: invalid file")
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("wav: unsupported audio format %d", d.WavAudioFormat)
	}
	if d.NumChans == 0 || d.SampleRate == 0 {
		return nil, fmt.Errorf("wav: missing format chunk")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: read pcm: %w", err)
	}

	bitDepth := int(d.BitDepth)
	samples := make([]float32, len(buf.Data))
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned.
		for i, v := range buf.Data {
			samples[i] = float32(v-128) / 128
		}
	case 16, 24, 32:
		scale := float32(math.Pow(2, float64(bitDepth-1)))
		for i, v := range buf.Data {
			samples[i] = float32(v) / scale
		}
	default:
		return nil, fmt.Errorf("wav: unsupported bit depth %d", bitDepth)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}, nil
}

// ReadWAV decodes the WAV file at path.
func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav: open: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}

// WriteWAV writes mono samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, wavFormatPCM)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = floatToPCM16(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: finalize: %w", err)
	}
	return nil
}

func floatToPCM16(s float32) int {
	switch {
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return math.MinInt16
	default:
		return int(math.Round(float64(s) * math.MaxInt16))
	}
}
