package elevenlabs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

const pcmBitDepth = 16

// encodeOutput turns the collected stream into clip bytes and the format
// reported to callers. Raw pcm_* output carries no header, so it is wrapped
// in a WAV container; every other format is passed through.
func encodeOutput(outputFormat string, audio []byte) ([]byte, string, error) {
	format := strings.ToLower(outputFormat)
	rate, ok := strings.CutPrefix(format, "pcm_")
	if !ok {
		return audio, format, nil
	}
	hz, err := strconv.Atoi(rate)
	if err != nil || hz <= 0 {
		return nil, "", fmt.Errorf("elevenlabs: invalid pcm sample rate %q", rate)
	}
	data, err := pcmToWAV(audio, hz)
	if err != nil {
		return nil, "", err
	}
	return data, "wav_" + rate, nil
}

// pcmToWAV wraps signed 16-bit little-endian mono PCM in a WAV container. A
// trailing odd byte is dropped.
func pcmToWAV(pcm []byte, sampleRate int) ([]byte, error) {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768
	}

	var buf bytes.Buffer
	enc := wav.NewEncoder(&seekBuffer{buf: &buf}, sampleRate, pcmBitDepth, 1, 1) // 1 = PCM
	err := enc.Write(&goaudio.Float32Buffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: pcmBitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("elevenlabs: close wav: %w", err)
	}
	return buf.Bytes(), nil
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes on Close.
type seekBuffer struct {
	buf *bytes.Buffer
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if s.pos == s.buf.Len() {
		n, err := s.buf.Write(p)
		s.pos += n
		return n, err
	}
	data := s.buf.Bytes()
	n := copy(data[s.pos:], p)
	if n < len(p) {
		s.buf.Write(p[n:])
	}
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int
	switch whence {
	case io.SeekStart:
		pos = int(offset)
	case io.SeekCurrent:
		pos = s.pos + int(offset)
	case io.SeekEnd:
		pos = s.buf.Len() + int(offset)
	default:
		return 0, fmt.Errorf("elevenlabs: invalid whence %d", whence)
	}
	if pos < 0 || pos > s.buf.Len() {
		return 0, errors.New("elevenlabs: seek out of range")
	}
	s.pos = pos
	return int64(pos), nil
}
