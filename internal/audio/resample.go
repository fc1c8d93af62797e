package audio

import "fmt"

// TargetSampleRate is the rate some vendors mandate for uploaded speech.
const TargetSampleRate = 16000

// Resample16k converts a 16-bit PCM WAV container to mono 16 kHz using linear
// interpolation. Audio that is already mono 16 kHz is returned unchanged.
func Resample16k(wav []byte) ([]byte, error) {
	info := ParseWAV(wav)
	if info == nil {
		return nil, fmt.Errorf("not a usable WAV container")
	}
	if info.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d, expected 16", info.BitsPerSample)
	}
	if info.SampleRate == TargetSampleRate && info.Channels == 1 {
		return wav, nil
	}

	interleaved := DecodeSamples(info)
	mono := downmix(interleaved, info.Channels)
	if len(mono) == 0 {
		return nil, fmt.Errorf("no audio data to resample")
	}

	// Normalize to [-1, 1] so interpolation and clipping are rate-independent.
	src := make([]float64, len(mono))
	for i, s := range mono {
		src[i] = float64(s) / 32768.0
	}

	ratio := float64(info.SampleRate) / float64(TargetSampleRate)
	outCount := int(float64(len(src)) / ratio)
	if outCount == 0 {
		return nil, fmt.Errorf("audio too short to resample")
	}

	out := make([]int16, outCount)
	for i := 0; i < outCount; i++ {
		pos := float64(i) * ratio
		left := int(pos)
		right := left + 1
		if right >= len(src) {
			right = len(src) - 1
		}
		frac := pos - float64(left)
		v := src[left]*(1-frac) + src[right]*frac
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		out[i] = int16(v * 32767.0)
	}

	return EncodeWAV(out, TargetSampleRate)
}

// downmix averages interleaved channels into a mono stream.
func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		mono[i] = int16(sum / channels)
	}
	return mono
}
