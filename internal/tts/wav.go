package tts

import (
	"bytes"
	"fmt"
	"math"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// decodeWAV converts a WAV document into mono int16 samples at its native rate.
// Multi-channel audio is averaged.
func decodeWAV(data []byte) ([]int16, int, error) {
	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode synthesized wav: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, 0, fmt.Errorf("read synthesized wav: %w", err)
	}

	scale := sampleScale(format.Precision)
	frames := make([][2]float64, 512)
	samples := make([]int16, 0, buffer.Len())
	s := buffer.Streamer(0, buffer.Len())
	for {
		n, ok := s.Stream(frames)
		for _, f := range frames[:n] {
			mono := f[0]
			if format.NumChannels > 1 {
				mono = (f[0] + f[1]) / 2
			}
			samples = append(samples, toInt16(mono, scale))
		}
		if !ok {
			break
		}
	}
	return samples, int(format.SampleRate), nil
}

// sampleScale maps decoded samples back to the int16 range. The beep v1 decoder
// divides 16 and 24 bit integers by 2^bits-1, so those samples span [-0.5, 0.5].
func sampleScale(precision int) float64 {
	switch precision {
	case 2:
		return 1<<16 - 1
	case 3:
		return (1<<24 - 1) / 256.0
	default:
		return math.MaxInt16
	}
}

func toInt16(v float64, scale float64) int16 {
	return int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v*scale))))
}
