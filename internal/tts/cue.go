package tts

import (
	"math"
	"time"
)

// CueSampleRate is the rate of synthesized tone cues.
const CueSampleRate = 16000

// Cue is a short tone pattern played when speech synthesis is unavailable.
type Cue int

const (
	CueAck Cue = iota + 1
	CueHello
	CueGoodbye
)

type tone struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var cueTones = map[Cue][]tone{
	CueAck: {
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	},
	CueHello: {
		{frequencyHz: 660, duration: 80 * time.Millisecond, volume: 0.2},
		{frequencyHz: 880, duration: 80 * time.Millisecond, volume: 0.2},
		{frequencyHz: 1320, duration: 120 * time.Millisecond, volume: 0.2},
	},
	CueGoodbye: {
		{frequencyHz: 740, duration: 90 * time.Millisecond, volume: 0.18},
		{frequencyHz: 480, duration: 140 * time.Millisecond, volume: 0.18},
	},
}

// cueFor picks the fallback cue for an utterance.
func cueFor(text string) Cue {
	switch {
	case hasPrefixFold(text, "hello"):
		return CueHello
	case hasPrefixFold(text, "goodbye"):
		return CueGoodbye
	default:
		return CueAck
	}
}

func synthesizeCue(parts []tone) []int16 {
	gap := samplesFor(22 * time.Millisecond)
	var pcm []int16
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 {
			pcm = append(pcm, make([]int16, gap)...)
		}
	}
	return pcm
}

func synthesizeTone(tn tone) []int16 {
	n := samplesFor(tn.duration)
	if n <= 0 || tn.frequencyHz <= 0 || tn.volume <= 0 {
		return nil
	}

	ramp := n / 10
	if maxRamp := CueSampleRate / 200; ramp > maxRamp {
		ramp = maxRamp
	}
	if ramp < 1 {
		ramp = 1
	}

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			envelope = math.Min(envelope, float64(tail)/float64(ramp))
		}
		t := float64(i) / CueSampleRate
		pcm[i] = int16(math.Round(math.Sin(2*math.Pi*tn.frequencyHz*t) * tn.volume * envelope * 32767))
	}
	return pcm
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * CueSampleRate))
}
