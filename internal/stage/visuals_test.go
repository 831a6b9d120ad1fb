package stage

import (
	"math/rand"
	"testing"
	"time"

	"github.com/olivier-w/djstage/internal/analysis"
)

func TestMapSignalSilence(t *testing.T) {
	v := MapSignal(analysis.Signal{}, time.Unix(0, 0), rand.New(rand.NewSource(1)))
	if v.HeadRotation != 0 || v.HeadOffset != 0 {
		t.Fatalf("expected still head, got rotation=%v offset=%v", v.HeadRotation, v.HeadOffset)
	}
	if v.BodyScale != 1 || v.Brightness != 1 || v.Glow != 0 {
		t.Fatalf("expected neutral body, got %+v", v)
	}
	if v.LeftArm != -10 || v.RightArm != 10 {
		t.Fatalf("expected resting arms, got left=%v right=%v", v.LeftArm, v.RightArm)
	}
	for i, h := range v.Bars {
		if h != 10 {
			t.Fatalf("bar %d = %v, want floor of 10", i, h)
		}
	}
}

func TestMapSignalFullScale(t *testing.T) {
	sig := analysis.Signal{Bass: 1, Mid: 1, Treble: 1, Volume: 1}
	v := MapSignal(sig, time.Unix(0, 0), rand.New(rand.NewSource(1)))

	if v.BodyScale != 1.1 || v.Brightness != 2 || v.Glow != 20 {
		t.Fatalf("unexpected body pulse: %+v", v)
	}
	if v.LeftArm != 30 || v.LeftArmShift != -5 || v.RightArm != -30 || v.RightArmShift != 5 {
		t.Fatalf("unexpected arms: %+v", v)
	}
	if v.HeadOffset != 10 {
		t.Fatalf("expected head offset 10, got %v", v.HeadOffset)
	}
	for i, h := range v.Bars {
		if h < 10 || h > 100 {
			t.Fatalf("bar %d = %v out of [10,100]", i, h)
		}
	}
}

func TestMapSignalHeadSwingIsBoundedByBass(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := time.Unix(1700000000, 0)
	for i := range 100 {
		v := MapSignal(analysis.Signal{Bass: 0.5}, base.Add(time.Duration(i)*7*time.Millisecond), rng)
		if v.HeadRotation < -7.5 || v.HeadRotation > 7.5 {
			t.Fatalf("head rotation %v exceeds bass*15", v.HeadRotation)
		}
	}
}
