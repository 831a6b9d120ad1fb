package media

import (
	"net/url"
	"path"
	"strings"
)

var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// Audio containers the in-process decoders cannot read; ffmpeg decodes them,
// from disk or from a URL.
var streamExts = map[string]bool{
	".aac":  true,
	".m4a":  true,
	".opus": true,
}

var playlistExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// IsSupportedExt returns true if the extension is a supported playable media format.
func IsSupportedExt(ext string) bool {
	ext = strings.ToLower(ext)
	return audioExts[ext] || streamExts[ext]
}

// NeedsFFmpeg reports whether files with this extension are decoded by ffmpeg.
func NeedsFFmpeg(ext string) bool {
	return streamExts[strings.ToLower(ext)]
}

// IsPlaylistExt returns true if the extension is a supported playlist format.
func IsPlaylistExt(ext string) bool {
	return playlistExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of supported playable media formats.
func SupportedExtsList() string {
	return ".mp3, .wav, .flac, .ogg, .aac, .m4a, .opus"
}

// IsURL returns true if the argument looks like an http(s) URL.
func IsURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// Kind says how a target is played.
type Kind int

const (
	// KindFile is a local file. Containers the in-process decoders cannot
	// read still reach the analyser through ffmpeg.
	KindFile Kind = iota
	// KindAudioURL is a direct audio URL decoded by ffmpeg. Its PCM is
	// visible to the analyser.
	KindAudioURL
	// KindPageURL is a web page (a video site, say) handed to an external
	// player. Its audio never reaches the analyser.
	KindPageURL
)

func (k Kind) String() string {
	switch k {
	case KindAudioURL:
		return "audio-url"
	case KindPageURL:
		return "page-url"
	default:
		return "file"
	}
}

// Tappable reports whether audio from this kind can be analysed.
func (k Kind) Tappable() bool { return k != KindPageURL }

// Classify decides the kind of target from its shape alone. URLs whose path
// carries an audio extension are direct audio; any other URL is a page.
func Classify(target string) Kind {
	if !IsURL(target) {
		return KindFile
	}
	if hasAudioPath(target) {
		return KindAudioURL
	}
	return KindPageURL
}

func hasAudioPath(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	return audioExts[ext] || streamExts[ext]
}
