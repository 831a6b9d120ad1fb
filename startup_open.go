package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/djstage/internal/media"
	"github.com/olivier-w/djstage/internal/queue"
	"github.com/olivier-w/djstage/internal/ui"
)

// buildDeck turns command-line targets into deck tracks. Directories expand
// to their audio files, local playlists to their playable entries. URLs are
// kept as-is and classified when opened.
func buildDeck(targets []string) ([]queue.Track, error) {
	var tracks []queue.Track
	for _, target := range targets {
		if media.IsURL(target) {
			tracks = append(tracks, queue.Track{Title: target, Target: target})
			continue
		}

		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			files := scanAudioFiles(target)
			if len(files) == 0 {
				return nil, fmt.Errorf("%s contains no audio files (supported: %s)", target, media.SupportedExtsList())
			}
			for _, f := range files {
				tracks = append(tracks, queue.Track{Title: titleFromPath(f), Target: f})
			}
			continue
		}

		ext := strings.ToLower(filepath.Ext(target))
		switch {
		case media.IsPlaylistExt(ext):
			entries, err := media.ParseLocalPlaylist(target)
			if err != nil {
				return nil, err
			}
			entries, _ = media.FilterPlayablePlaylistEntries(entries)
			if len(entries) == 0 {
				return nil, fmt.Errorf("%s contains no playable entries", target)
			}
			for _, t := range queue.FromEntries(entries) {
				if t.Title == "" {
					t.Title = titleFromPath(t.Target)
				}
				tracks = append(tracks, t)
			}
		case media.IsSupportedExt(ext):
			tracks = append(tracks, queue.Track{Title: titleFromPath(target), Target: target})
		default:
			return nil, fmt.Errorf("unsupported format %s (supported: %s)", ext, media.SupportedExtsList())
		}
	}
	return tracks, nil
}

// scanAudioFiles returns the supported audio files in dir, sorted
// alphabetically (case-insensitive).
func scanAudioFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if media.IsSupportedExt(strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
	})
	return files
}

func titleFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func openTrackCmd(open ui.Opener, t queue.Track) tea.Cmd {
	return func() tea.Msg {
		h, err := open(context.Background(), t)
		return startupResolvedMsg{handle: h, err: err}
	}
}
