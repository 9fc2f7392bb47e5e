// Package audio turns uploaded clips into the canonical model input:
// mono 16-bit PCM WAV at 16 kHz.
//
// The Normalizer interface has two backends that register themselves by
// name: audio/ffmpeg shells out to ffmpeg and accepts anything it can
// decode, audio/native decodes WAV, MP3, FLAC and Ogg Vorbis in Go. The
// container is always detected from content, never from the file name.
package audio
