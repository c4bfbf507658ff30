// Package audio synthesises the calibration feedback beeps: target
// acquisition, calibration done, and error tones. Playback is delegated to a
// Player so the display layer (or tests) decide where the PCM goes.
package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Beep frequencies and timing shared by all backends.
const (
	SampleRate = 22050 // Hz

	TargetHz = 800
	DoneHz   = 1200
	ErrorHz  = 400

	beepSeconds = 0.1
)

// Tone is a mono PCM waveform at SampleRate.
type Tone struct {
	Samples []float32
}

// Player consumes a tone. Implementations may hand it to an audio device,
// write a file, or discard it.
type Player interface {
	Play(Tone) error
}

// NopPlayer discards tones. Used in headless runs and tests.
type NopPlayer struct{}

func (NopPlayer) Play(Tone) error { return nil }

// Synthesize generates a sine tone of the given frequency and duration in
// seconds, scaled by volume (0..1).
func Synthesize(frequencyHz float64, seconds float64, volume float64) Tone {
	n := int(SampleRate * seconds)
	samples := make([]float32, n)
	for i := range samples {
		t := float64(i) / SampleRate
		samples[i] = float32(math.Sin(2*math.Pi*frequencyHz*t) * volume)
	}
	return Tone{Samples: samples}
}

// Beeper pre-generates the three calibration tones and plays them through the
// configured Player.
type Beeper struct {
	player Player
	target Tone
	done   Tone
	err    Tone
}

// NewBeeper creates a Beeper. A nil player is replaced with NopPlayer.
func NewBeeper(player Player) *Beeper {
	if player == nil {
		player = NopPlayer{}
	}
	return &Beeper{
		player: player,
		target: Synthesize(TargetHz, beepSeconds, 1.0),
		done:   Synthesize(DoneHz, beepSeconds, 1.0),
		err:    Synthesize(ErrorHz, beepSeconds, 1.0),
	}
}

// Target plays the target acquisition beep (800 Hz).
func (b *Beeper) Target() error { return b.player.Play(b.target) }

// Done plays the calibration done beep (1200 Hz).
func (b *Beeper) Done() error { return b.player.Play(b.done) }

// Error plays the error beep (400 Hz).
func (b *Beeper) Error() error { return b.player.Play(b.err) }

// EncodeWAV renders the tone as a 16-bit mono PCM WAV file.
func EncodeWAV(tone Tone) []byte {
	dataLen := len(tone.Samples) * 2
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))         // chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))          // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))          // mono
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate)) // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(SampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range tone.Samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.Write(&buf, binary.LittleEndian, int16(v*math.MaxInt16))
	}

	return buf.Bytes()
}
