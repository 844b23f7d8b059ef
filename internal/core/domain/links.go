package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLinkKind is returned for unsupported listen-link platforms.
var ErrUnknownLinkKind = errors.New("domain: unknown link kind")

// LinkKind names an external listening platform.
type LinkKind string

const (
	LinkYouTube LinkKind = "youtube"
	LinkSpotify LinkKind = "spotify"
)

// ParseLinkKind accepts a case-insensitive platform name.
func ParseLinkKind(raw string) (LinkKind, error) {
	switch LinkKind(strings.ToLower(strings.TrimSpace(raw))) {
	case LinkYouTube:
		return LinkYouTube, nil
	case LinkSpotify:
		return LinkSpotify, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLinkKind, raw)
	}
}

// TrackQuery joins artist and title the way every lookup endpoint expects.
func TrackQuery(artist, title string) string {
	return strings.TrimSpace(strings.TrimSpace(artist) + " " + strings.TrimSpace(title))
}
