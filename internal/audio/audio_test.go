package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestSynthesizeLengthAndRange(t *testing.T) {
	tone := Synthesize(800, 0.1, 1.0)
	if got, want := len(tone.Samples), int(SampleRate*0.1); got != want {
		t.Fatalf("sample count = %d, want %d", got, want)
	}
	for i, s := range tone.Samples {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d out of range: %v", i, s)
		}
	}
	// First sample of a sine is zero.
	if tone.Samples[0] != 0 {
		t.Errorf("first sample = %v, want 0", tone.Samples[0])
	}
}

func TestSynthesizeFrequency(t *testing.T) {
	// Count zero crossings: a 400 Hz tone over 0.1 s crosses zero about 80
	// times (two per cycle).
	tone := Synthesize(400, 0.1, 1.0)
	crossings := 0
	for i := 1; i < len(tone.Samples); i++ {
		if (tone.Samples[i-1] < 0) != (tone.Samples[i] < 0) {
			crossings++
		}
	}
	if crossings < 78 || crossings > 82 {
		t.Errorf("zero crossings = %d, want about 80", crossings)
	}
}

func TestSynthesizeVolume(t *testing.T) {
	tone := Synthesize(800, 0.05, 0.5)
	var peak float64
	for _, s := range tone.Samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	if peak > 0.5001 || peak < 0.45 {
		t.Errorf("peak = %v, want about 0.5", peak)
	}
}

type capturePlayer struct {
	tones []Tone
}

func (p *capturePlayer) Play(t Tone) error {
	p.tones = append(p.tones, t)
	return nil
}

func TestBeeper(t *testing.T) {
	p := &capturePlayer{}
	b := NewBeeper(p)
	if err := b.Target(); err != nil {
		t.Fatalf("Target: %v", err)
	}
	if err := b.Done(); err != nil {
		t.Fatalf("Done: %v", err)
	}
	if err := b.Error(); err != nil {
		t.Fatalf("Error: %v", err)
	}
	if len(p.tones) != 3 {
		t.Fatalf("played %d tones, want 3", len(p.tones))
	}
	// All beeps share the 100 ms duration.
	for i, tone := range p.tones {
		if len(tone.Samples) != int(SampleRate*0.1) {
			t.Errorf("tone %d length = %d", i, len(tone.Samples))
		}
	}
}

func TestBeeperNilPlayer(t *testing.T) {
	b := NewBeeper(nil)
	if err := b.Target(); err != nil {
		t.Fatalf("nil player should be a no-op, got %v", err)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	tone := Synthesize(800, 0.01, 1.0)
	wav := EncodeWAV(tone)

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE header")
	}
	if string(wav[12:16]) != "fmt " {
		t.Fatal("missing fmt chunk")
	}
	rate := binary.LittleEndian.Uint32(wav[24:28])
	if rate != SampleRate {
		t.Errorf("sample rate = %d, want %d", rate, SampleRate)
	}
	dataLen := binary.LittleEndian.Uint32(wav[40:44])
	if int(dataLen) != len(tone.Samples)*2 {
		t.Errorf("data length = %d, want %d", dataLen, len(tone.Samples)*2)
	}
	if len(wav) != 44+int(dataLen) {
		t.Errorf("total length = %d, want %d", len(wav), 44+int(dataLen))
	}
}
