package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Format is a container format recognized from file content.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatOgg     Format = "ogg"
	FormatMP4     Format = "m4a"
)

// sniffLen is enough for every signature below including an ID3 header check.
const sniffLen = 12

// Sniff identifies the container from its leading bytes. The file name is
// never consulted.
func Sniff(header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(header, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(header, []byte("OggS")):
		return FormatOgg
	case bytes.HasPrefix(header, []byte("ID3")):
		return FormatMP3
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return FormatMP4
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		// MPEG audio frame sync.
		return FormatMP3
	}
	return FormatUnknown
}

// SniffFile reads the head of path and identifies its container.
func SniffFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, fmt.Errorf("read header: %w", err)
	}
	return Sniff(header[:n]), nil
}
