package visualizer

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/djstage/internal/stage"
)

const (
	avatarCols = 25
	avatarRows = 9
	avatarMid  = avatarCols / 2
)

// spring slots for the eased avatar pose
const (
	poseHeadRot = iota
	poseHeadDrop
	poseLeftArm
	poseRightArm
	poseGlow
	poseBright
	poseCount
)

// Avatar renders the DJ: a headphone-wearing figure at the decks whose
// head nods with the bass, arms follow mid and treble, and decks glow with
// volume.
type Avatar struct {
	springs springField
	output  string
}

// NewAvatar creates a new avatar visualizer.
func NewAvatar(fps int) *Avatar {
	return &Avatar{springs: newSpringField(fps, poseCount, 10, 0.6)}
}

func (a *Avatar) Name() string { return "dj" }

// avatarPose is the quantized pose for one frame.
type avatarPose struct {
	headShift int // columns, negative is left
	headDrop  int // rows
	face      string
	leftArm   int // 0 down, 1 level, 2 raised
	rightArm  int
	wide      bool
	glow      float64
	bright    float64
}

func (a *Avatar) pose(v stage.Visuals) avatarPose {
	rot := a.springs.step(poseHeadRot, v.HeadRotation)
	drop := a.springs.step(poseHeadDrop, v.HeadOffset)
	left := a.springs.step(poseLeftArm, v.LeftArm)
	right := a.springs.step(poseRightArm, v.RightArm)
	glow := a.springs.step(poseGlow, v.Glow)
	bright := a.springs.step(poseBright, v.Brightness)

	p := avatarPose{
		headShift: int(math.Round(max(min(rot/6, 2), -2))),
		face:      "d(-_-)b",
		wide:      v.BodyScale > 1.05,
		glow:      clamp01(glow / 20),
		bright:    clamp01(bright - 1),
	}
	if drop > 5 {
		p.headDrop = 1
	}
	switch {
	case p.bright > 0.6:
		p.face = "d(^o^)b"
	case p.bright > 0.25:
		p.face = "d(^_^)b"
	}
	// LeftArm rises with mid from -10; RightArm falls with treble from 10.
	switch {
	case left >= 15:
		p.leftArm = 2
	case left >= 0:
		p.leftArm = 1
	}
	switch {
	case right <= -15:
		p.rightArm = 2
	case right <= 0:
		p.rightArm = 1
	}
	return p
}

func (a *Avatar) Update(f stage.Frame, width, height int) {
	p := a.pose(f.Visuals)
	canvas := drawAvatar(p)

	lines := make([]string, avatarRows)
	for i, row := range canvas {
		s := string(row)
		switch {
		case i <= 2:
			s = paint(levelColor(0.3+p.bright*0.6), s)
		case i >= avatarRows-2:
			s = paint(levelColor(p.glow), s)
		default:
			s = paint(green, s)
		}
		lines[i] = s
	}

	out := strings.Join(lines, "\n")
	if width > avatarCols {
		out = lipgloss.PlaceHorizontal(width, lipgloss.Center, out)
	}
	if height > avatarRows {
		out = lipgloss.PlaceVertical(height, lipgloss.Bottom, out)
	}
	a.output = out
}

func drawAvatar(p avatarPose) [avatarRows][]rune {
	var c [avatarRows][]rune
	for i := range c {
		c[i] = []rune(strings.Repeat(" ", avatarCols))
	}
	put := func(row, col int, s string) {
		for i, r := range []rune(s) {
			if x := col + i; row >= 0 && row < avatarRows && x >= 0 && x < avatarCols {
				c[row][x] = r
			}
		}
	}

	head := 1 + p.headDrop
	hx := avatarMid - 3 + p.headShift
	put(head-1, hx+1, "_____")
	put(head, hx, p.face)
	put(head+1, avatarMid, "|")

	body := "[===]"
	if p.wide {
		body = "[=====]"
	}
	bodyX := avatarMid - len(body)/2
	put(4, bodyX, body)
	put(5, avatarMid-2, "|   |")

	lx := bodyX - 1
	switch p.leftArm {
	case 2:
		put(3, lx-1, "\\")
		put(4, lx, "_")
	case 1:
		put(4, lx-2, "___")
	default:
		put(5, lx, "/")
	}
	rx := bodyX + len([]rune(body))
	switch p.rightArm {
	case 2:
		put(3, rx+1, "/")
		put(4, rx, "_")
	case 1:
		put(4, rx, "___")
	default:
		put(5, rx, "\\")
	}

	put(6, 1, strings.Repeat("_", avatarCols-3))
	put(7, 0, "[ (@)  ==========  (@) ]")
	put(8, 0, strings.Repeat("~", avatarCols-1))
	return c
}

func (a *Avatar) View() string {
	return a.output
}
