package media

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// PlaylistEntry is one item of a playlist: a local Path or a URL.
type PlaylistEntry struct {
	Path  string
	URL   string
	Title string
}

// Target returns whichever of Path or URL is set.
func (e PlaylistEntry) Target() string {
	if e.URL != "" {
		return e.URL
	}
	return e.Path
}

// ParseLocalPlaylist parses a local .m3u/.m3u8/.pls file. Relative entries
// are resolved against the playlist file directory; URL entries are kept
// as URLs.
func ParseLocalPlaylist(path string) ([]PlaylistEntry, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsPlaylistExt(ext) {
		return nil, fmt.Errorf("unsupported playlist format %s", ext)
	}

	absPlaylistPath, err := filepath.Abs(path)
	if err != nil {
		absPlaylistPath = path
	}

	data, err := os.ReadFile(absPlaylistPath)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("playlist is not valid UTF-8")
	}

	baseDir := filepath.Dir(absPlaylistPath)
	scanner := bufio.NewScanner(strings.NewReader(string(data)))

	switch ext {
	case ".pls":
		return parsePLS(scanner, baseDir), nil
	default:
		return parseM3U(scanner, baseDir), nil
	}
}

// FilterPlayablePlaylistEntries keeps URLs and existing, supported local
// files, filling in titles. It returns how many entries were dropped.
func FilterPlayablePlaylistEntries(entries []PlaylistEntry) ([]PlaylistEntry, int) {
	out := make([]PlaylistEntry, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		if e.URL != "" {
			if e.Title == "" {
				e.Title = e.URL
			}
			out = append(out, e)
			continue
		}
		info, err := os.Stat(e.Path)
		if err != nil || info.IsDir() || !IsSupportedExt(filepath.Ext(e.Path)) {
			skipped++
			continue
		}
		if abs, err := filepath.Abs(e.Path); err == nil {
			e.Path = abs
		}
		if e.Title == "" {
			e.Title = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
		}
		out = append(out, e)
	}
	return out, skipped
}

func parseM3U(scanner *bufio.Scanner, baseDir string) []PlaylistEntry {
	entries := make([]PlaylistEntry, 0)
	title := ""
	for scanner.Scan() {
		line := normalizeEntry(scanner.Text())
		if info, ok := strings.CutPrefix(line, "#EXTINF:"); ok {
			// #EXTINF:<seconds>,<title>
			if _, t, found := strings.Cut(info, ","); found {
				title = strings.TrimSpace(t)
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e := resolveEntry(line, baseDir)
		if title != "" {
			e.Title = title
			title = ""
		}
		entries = append(entries, e)
	}
	return entries
}

func parsePLS(scanner *bufio.Scanner, baseDir string) []PlaylistEntry {
	entries := make([]PlaylistEntry, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:eq]))
		val := normalizeEntry(line[eq+1:])
		if val == "" || !isPLSFileKey(key) {
			continue
		}
		entries = append(entries, resolveEntry(val, baseDir))
	}
	return entries
}

func isPLSFileKey(key string) bool {
	rest, ok := strings.CutPrefix(key, "file")
	if !ok || rest == "" {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return false
		}
	}
	return true
}

// normalizeEntry trims whitespace, a byte order mark and matching quotes.
func normalizeEntry(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[0] == s[len(s)-1] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func resolveEntry(raw, baseDir string) PlaylistEntry {
	if IsURL(raw) {
		return PlaylistEntry{URL: raw, Title: raw}
	}
	p := filepath.Clean(raw)
	if !filepath.IsAbs(p) {
		p = filepath.Clean(filepath.Join(baseDir, p))
	}
	return PlaylistEntry{Path: p}
}
