// Package queue holds the deck: the ordered list of tracks the stage plays.
package queue

import (
	"math/rand"
	"time"

	"github.com/olivier-w/djstage/internal/media"
)

// TrackState is the playback state of a track.
type TrackState int

const (
	Pending TrackState = iota
	Loading
	Playing
	Done
	Failed
)

func (s TrackState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Track is one deck entry. Target is a local path or a URL; Image and
// Duration are optional and filled in when known.
type Track struct {
	Title    string
	Target   string
	Image    string
	Duration time.Duration
	State    TrackState
}

// Kind reports how the track is played.
func (t Track) Kind() media.Kind {
	return media.Classify(t.Target)
}

// FromEntries builds deck tracks from playlist entries.
func FromEntries(entries []media.PlaylistEntry) []Track {
	tracks := make([]Track, 0, len(entries))
	for _, e := range entries {
		tracks = append(tracks, Track{Title: e.Title, Target: e.Target()})
	}
	return tracks
}

// Queue is the deck. It is only mutated from Bubbletea's single-threaded
// Update loop.
type Queue struct {
	tracks  []Track
	current int
	// order maps play position to track index; nil when not shuffled.
	order []int
	pos   int
}

// New creates a Queue from the given tracks.
func New(tracks []Track) *Queue {
	return &Queue{tracks: tracks}
}

func (q *Queue) index(pos int) int {
	if q.order != nil {
		return q.order[pos]
	}
	return pos
}

// Current returns a pointer to the current track, or nil if empty.
func (q *Queue) Current() *Track {
	return q.Track(q.current)
}

// Advance moves to the next track in play order. Returns false at the end.
func (q *Queue) Advance() bool {
	if q.pos+1 >= len(q.tracks) {
		return false
	}
	q.pos++
	q.current = q.index(q.pos)
	return true
}

// Previous moves back one track in play order. Returns false at the start.
func (q *Queue) Previous() bool {
	if q.pos <= 0 {
		return false
	}
	q.pos--
	q.current = q.index(q.pos)
	return true
}

// Peek returns up to n tracks after the current one in play order.
func (q *Queue) Peek(n int) []Track {
	var out []Track
	for p := q.pos + 1; p < len(q.tracks) && len(out) < n; p++ {
		out = append(out, q.tracks[q.index(p)])
	}
	return out
}

// Len returns the total number of tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// CurrentIndex returns the zero-based index of the current track.
func (q *Queue) CurrentIndex() int {
	return q.current
}

// Position returns the zero-based play position of the current track.
func (q *Queue) Position() int {
	return q.pos
}

// Track returns a pointer to the track at the given index, or nil if out of range.
func (q *Queue) Track(i int) *Track {
	if i < 0 || i >= len(q.tracks) {
		return nil
	}
	return &q.tracks[i]
}

// SetTrackState sets the state of the track at the given index.
func (q *Queue) SetTrackState(i int, state TrackState) {
	if t := q.Track(i); t != nil {
		t.State = state
	}
}

// SetTrackTitle sets the title of the track at the given index.
func (q *Queue) SetTrackTitle(i int, title string) {
	if t := q.Track(i); t != nil && title != "" {
		t.Title = title
	}
}

// SetTrackDuration records the duration of the track at the given index.
func (q *Queue) SetTrackDuration(i int, d time.Duration) {
	if t := q.Track(i); t != nil {
		t.Duration = d
	}
}

// IsShuffled returns whether shuffle mode is active.
func (q *Queue) IsShuffled() bool {
	return q.order != nil
}

// Shuffle randomizes the play order of every track except the current one,
// which stays at the head. Fisher-Yates over rng.
func (q *Queue) Shuffle(rng *rand.Rand) {
	n := len(q.tracks)
	if n <= 1 {
		return
	}
	order := make([]int, 0, n)
	for i := range n {
		if i != q.current {
			order = append(order, i)
		}
	}
	for i := len(order) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	q.order = append([]int{q.current}, order...)
	q.pos = 0
}

// Unshuffle restores list order, keeping the current track.
func (q *Queue) Unshuffle() {
	q.order = nil
	q.pos = q.current
}
