package native

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/kbukum/speakerembed/audio"
)

// errUnsupportedFormat is returned for containers without a Go decoder.
var errUnsupportedFormat = errors.New("unsupported audio format")

// decodeFile sniffs the container of path and decodes it.
func decodeFile(path string) (*audio.Clip, error) {
	format, err := audio.SniffFile(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var clip *audio.Clip
	switch format {
	case audio.FormatWAV:
		clip, err = audio.DecodeWAV(f)
	case audio.FormatMP3:
		clip, err = decodeMP3(f)
	case audio.FormatFLAC:
		clip, err = decodeFLAC(f)
	case audio.FormatOgg:
		clip, err = decodeOgg(f)
	case audio.FormatMP4:
		return nil, fmt.Errorf("%w: m4a needs the ffmpeg backend", errUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: unrecognized file content", errUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	if clip.Frames() == 0 {
		return nil, fmt.Errorf("decode %s: no audio samples", format)
	}
	return clip, nil
}

// decodeMP3 decodes to float samples. go-mp3 always yields 16-bit
// little-endian stereo.
func decodeMP3(r io.Reader) (*audio.Clip, error) {
	d, err := mp3.NewDecoder(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}
	n := len(raw) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	return &audio.Clip{Samples: samples, SampleRate: d.SampleRate(), Channels: 2}, nil
}

// maxPreallocFrames bounds the allocation trusted from a FLAC header.
const maxPreallocFrames = 1 << 24

// decodeFLAC decodes every frame, interleaving the subframes.
func decodeFLAC(r io.Reader) (*audio.Clip, error) {
	stream, err := flac.New(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels == 0 {
		return nil, errors.New("flac: zero channels")
	}
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	capacity := 0
	if stream.Info.NSamples < maxPreallocFrames {
		capacity = int(stream.Info.NSamples) * channels
	}
	samples := make([]float32, 0, capacity)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(frame.Subframes) != channels {
			return nil, fmt.Errorf("flac: frame has %d subframes, want %d", len(frame.Subframes), channels)
		}
		blockSize := len(frame.Subframes[0].Samples)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}
	return &audio.Clip{Samples: samples, SampleRate: int(stream.Info.SampleRate), Channels: channels}, nil
}

// decodeOgg decodes an Ogg Vorbis stream; samples are already interleaved floats.
func decodeOgg(r io.Reader) (*audio.Clip, error) {
	samples, format, err := oggvorbis.ReadAll(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	return &audio.Clip{Samples: samples, SampleRate: format.SampleRate, Channels: format.Channels}, nil
}
