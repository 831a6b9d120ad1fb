package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Route is the outcome of resolving a URL.
type Route struct {
	Kind     Kind
	FinalURL string
	// Playlist is set when the URL served a remote playlist.
	Playlist []PlaylistEntry
}

const (
	probeTimeout   = 4 * time.Second
	probeBodyLimit = 64 * 1024
)

var probeClient = &http.Client{Timeout: probeTimeout}

type probeResult struct {
	finalURL    string
	contentType string
	body        string
}

// ResolveURL refines Classify by probing the URL: extensionless audio
// streams (internet radio, say) are recognised by content type and remote
// playlists are expanded. When the probe fails the shape-based kind stands.
func ResolveURL(ctx context.Context, rawURL string) (Route, error) {
	rawURL = normalizeEntry(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Route{}, fmt.Errorf("unsupported URL %q", rawURL)
	}

	route := Route{Kind: Classify(rawURL), FinalURL: rawURL}
	p, err := probeURL(ctx, rawURL)
	if err != nil {
		return route, err
	}
	route.FinalURL = p.finalURL

	switch {
	case isPlaylistContentType(p.contentType) || hasPlaylistBodyMarker(p.body):
		if entries := parseRemotePlaylist(p.body, p.finalURL); len(entries) > 0 {
			route.Playlist = entries
			return route, nil
		}
	case isAudioLikeContentType(p.contentType):
		route.Kind = KindAudioURL
	case strings.HasPrefix(p.contentType, "text/html"):
		route.Kind = KindPageURL
	}
	return route, nil
}

func probeURL(ctx context.Context, rawURL string) (probeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return probeResult{}, err
	}
	req.Header.Set("Range", "bytes=0-65535")
	req.Header.Set("User-Agent", "djstage")

	resp, err := probeClient.Do(req)
	if err != nil {
		return probeResult{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, probeBodyLimit))
	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}

	p := probeResult{
		finalURL:    rawURL,
		contentType: strings.ToLower(contentType),
		body:        string(body),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		p.finalURL = resp.Request.URL.String()
	}
	return p, nil
}

func isPlaylistContentType(contentType string) bool {
	switch contentType {
	case "audio/x-mpegurl",
		"application/x-mpegurl",
		"application/vnd.apple.mpegurl",
		"audio/mpegurl",
		"audio/x-scpls":
		return true
	default:
		return false
	}
}

func isAudioLikeContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "audio/") ||
		contentType == "application/ogg"
}

func hasPlaylistBodyMarker(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.ToLower(normalizeEntry(line))
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, "#extm3u") || trimmed == "[playlist]"
	}
	return false
}

// parseRemotePlaylist reads M3U or PLS entries, keeping only http(s) URLs
// resolved against base.
func parseRemotePlaylist(body, base string) []PlaylistEntry {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var entries []PlaylistEntry
	title := ""
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := normalizeEntry(scanner.Text())
		lower := strings.ToLower(line)
		var target string
		switch {
		case line == "":
			continue
		case strings.HasPrefix(lower, "#extinf:"):
			if _, t, ok := strings.Cut(line, ","); ok {
				title = strings.TrimSpace(t)
			}
			continue
		case strings.HasPrefix(line, "#"), strings.HasPrefix(line, "["):
			continue
		case strings.Contains(line, "="):
			key, val, _ := strings.Cut(line, "=")
			if !isPLSFileKey(strings.ToLower(strings.TrimSpace(key))) {
				continue
			}
			target = strings.TrimSuffix(normalizeEntry(val), ";")
		default:
			target = line
		}

		ref, err := url.Parse(target)
		if err != nil {
			title = ""
			continue
		}
		abs := baseURL.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			title = ""
			continue
		}
		if title == "" {
			title = abs.String()
		}
		entries = append(entries, PlaylistEntry{URL: abs.String(), Title: title})
		title = ""
	}
	return entries
}
