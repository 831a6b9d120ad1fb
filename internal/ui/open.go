package ui

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/olivier-w/djstage/internal/audio"
	"github.com/olivier-w/djstage/internal/media"
	"github.com/olivier-w/djstage/internal/player"
	"github.com/olivier-w/djstage/internal/queue"
)

// Opener turns a deck track into a paused playback handle.
type Opener func(ctx context.Context, t queue.Track) (player.Handle, error)

// NewOpener returns the default opener. Local files and direct audio URLs
// are decoded on actx and can be tapped; page URLs are probed once and,
// unless they turn out to serve audio, go to an external player.
func NewOpener(actx *audio.Context, logger *log.Logger) Opener {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return func(ctx context.Context, t queue.Track) (player.Handle, error) {
		switch t.Kind() {
		case media.KindFile:
			p, err := player.New(actx, t.Target)
			if err != nil {
				return nil, err
			}
			return p, nil
		case media.KindAudioURL:
			return openStream(actx, t.Target)
		}

		route, err := media.ResolveURL(ctx, t.Target)
		if err != nil {
			logger.Printf("ui: probing %s: %v", t.Target, err)
		}
		switch {
		case len(route.Playlist) > 0:
			return openStream(actx, route.Playlist[0].URL)
		case route.Kind == media.KindAudioURL:
			return openStream(actx, route.FinalURL)
		}
		e, err := player.NewExternal(t.Target, t.Title, logger)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", t.Target, err)
		}
		return e, nil
	}
}

func openStream(actx *audio.Context, url string) (player.Handle, error) {
	p, err := player.NewStream(actx, url)
	if err != nil {
		return nil, err
	}
	return p, nil
}
