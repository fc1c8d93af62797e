// Package audio handles WAV container parsing, PCM extraction and sample-rate
// conversion for recordings uploaded by clients before they are forwarded to a
// speech scoring vendor.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// WavInfo describes a parsed WAV container.
type WavInfo struct {
	SampleRate    int     `json:"sample_rate"`
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	Data          []byte  `json:"-"` // raw PCM from the data sub-chunk
}

// ParseWAV validates a RIFF-WAVE container and extracts its PCM payload.
// It returns nil on any structural mismatch; callers must treat nil as
// "unusable audio", never as a reason to crash.
func ParseWAV(data []byte) *WavInfo {
	if len(data) < wavHeaderSize {
		return nil
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil
	}

	channels := int(binary.LittleEndian.Uint16(data[22:24]))
	sampleRate := int(binary.LittleEndian.Uint32(data[24:28]))
	bitsPerSample := int(binary.LittleEndian.Uint16(data[34:36]))
	if channels <= 0 || sampleRate <= 0 || bitsPerSample < 8 {
		return nil
	}

	// Optional sub-chunks (LIST, fact, ...) may precede data, so walk the
	// sub-chunk headers instead of assuming data sits at offset 36.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		if chunkSize < 0 {
			return nil
		}
		if chunkID == "data" {
			start := offset + 8
			end := start + chunkSize
			if end > len(data) {
				end = len(data)
			}
			pcm := data[start:end]
			bytesPerSample := bitsPerSample / 8
			duration := float64(len(pcm)) / float64(sampleRate*channels*bytesPerSample)
			return &WavInfo{
				SampleRate:    sampleRate,
				Channels:      channels,
				BitsPerSample: bitsPerSample,
				Duration:      duration,
				Data:          pcm,
			}
		}
		offset += 8 + chunkSize
	}
	return nil
}

// EncodeWAV writes mono 16-bit PCM samples into a canonical 44-byte-header
// WAV container.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*2))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1))  // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeSamples converts the PCM payload of a parsed container into int16
// samples. Channels remain interleaved.
func DecodeSamples(info *WavInfo) []int16 {
	if info == nil || info.BitsPerSample != 16 {
		return nil
	}
	n := len(info.Data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(info.Data[i*2 : i*2+2]))
	}
	return samples
}
