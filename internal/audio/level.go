package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// RMS is the root-mean-square amplitude of s16le mono PCM, on the 0..32768 scale.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// Duration is the play time of s16le mono PCM at SampleRate.
func Duration(pcm []byte) time.Duration {
	samples := len(pcm) / 2
	return time.Duration(samples) * time.Second / SampleRate
}
