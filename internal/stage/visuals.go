package stage

import (
	"math"
	"math/rand"
	"time"

	"github.com/olivier-w/djstage/internal/analysis"
)

// BarCount is the number of frequency bars on the stage floor.
const BarCount = 20

// Visuals are the animation targets for one frame. Angles are in degrees,
// offsets in abstract stage units, bar heights in percent.
type Visuals struct {
	HeadRotation  float64
	HeadOffset    float64
	BodyScale     float64
	Brightness    float64
	Glow          float64
	LeftArm       float64
	LeftArmShift  float64
	RightArm      float64
	RightArmShift float64
	Bars          [BarCount]float64
}

// MapSignal derives stage visuals from a signal. The head nods with the bass
// on a fast time-based swing, the body pulses and glows with volume, the arms
// follow mid and treble, and the bars mix bass and mid with random texture.
func MapSignal(sig analysis.Signal, now time.Time, rng *rand.Rand) Visuals {
	ms := float64(now.UnixMilli())
	v := Visuals{
		HeadRotation:  math.Sin(ms/100) * sig.Bass * 15,
		HeadOffset:    sig.Bass * 10,
		BodyScale:     1 + sig.Volume*0.1,
		Brightness:    1 + sig.Volume,
		Glow:          sig.Volume * 20,
		LeftArm:       -10 + sig.Mid*40,
		LeftArmShift:  sig.Mid * -5,
		RightArm:      10 - sig.Treble*40,
		RightArmShift: sig.Treble * 5,
	}
	energy := sig.Bass*200 + sig.Mid*100
	for i := range v.Bars {
		h := math.Max(10, rng.Float64()*energy)
		v.Bars[i] = math.Min(100, h)
	}
	return v
}
