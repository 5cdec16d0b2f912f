package video

import (
	"net/url"
	"strings"
)

type EmbedType int

const (
	EmbedTypeNone EmbedType = iota
	EmbedTypeYouTube
	EmbedTypeTwitch
	EmbedTypeVideo
	EmbedTypeIframe
)

func (t EmbedType) String() string {
	switch t {
	case EmbedTypeYouTube:
		return "youtube"
	case EmbedTypeTwitch:
		return "twitch"
	case EmbedTypeVideo:
		return "video"
	case EmbedTypeIframe:
		return "iframe"
	}
	return "none"
}

type EmbedInfo struct {
	Type EmbedType
	URL  string
}

// Normalize returns the embeddable form of a game's VOD link, or "" for a blank link.
func Normalize(link string) string {
	return GetEmbedInfo(link).URL
}

func GetEmbedInfo(link string) EmbedInfo {
	link = strings.TrimSpace(link)
	if link == "" {
		return EmbedInfo{Type: EmbedTypeNone}
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return EmbedInfo{Type: EmbedTypeIframe, URL: link}
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")

	switch host {
	case "youtube.com", "m.youtube.com":
		if strings.HasPrefix(u.Path, "/embed/") {
			return EmbedInfo{Type: EmbedTypeYouTube, URL: link}
		}
		if id := u.Query().Get("v"); id != "" {
			return youtube(id, u.Query().Get("t"))
		}
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return youtube(id, u.Query().Get("t"))
		}
	case "twitch.tv":
		// twitch.tv/videos/<id>
		if id, ok := strings.CutPrefix(u.Path, "/videos/"); ok && id != "" {
			return EmbedInfo{Type: EmbedTypeTwitch, URL: "https://player.twitch.tv/?video=" + strings.Trim(id, "/")}
		}
	}

	lower := strings.ToLower(u.Path)
	for _, ext := range []string{".mp4", ".webm", ".ogg", ".mov"} {
		if strings.HasSuffix(lower, ext) {
			return EmbedInfo{Type: EmbedTypeVideo, URL: link}
		}
	}

	// Default to generic iframe and hope for the best
	return EmbedInfo{Type: EmbedTypeIframe, URL: link}
}

func youtube(id, start string) EmbedInfo {
	embed := "https://www.youtube.com/embed/" + id
	if start = strings.TrimSuffix(start, "s"); start != "" {
		embed += "?start=" + start
	}
	return EmbedInfo{Type: EmbedTypeYouTube, URL: embed}
}
