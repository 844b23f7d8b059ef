package services

import "testing"

func TestExtractExternalID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		marker string
		want   string
		wantOK bool
	}{
		{name: "plain", url: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", marker: "/track/", want: "4uLU6hMCjMI75M1A2tKUQC", wantOK: true},
		{name: "query string", url: "https://open.spotify.com/track/abc?si=123", marker: "/track/", want: "abc", wantOK: true},
		{name: "trailing path", url: "https://open.spotify.com/intl-de/track/abc/extra", marker: "/track/", want: "abc", wantOK: true},
		{name: "no marker", url: "https://open.spotify.com/album/abc", marker: "/track/", wantOK: false},
		{name: "empty token", url: "https://open.spotify.com/track/?si=1", marker: "/track/", wantOK: false},
		{name: "empty marker", url: "https://open.spotify.com/track/abc", marker: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractExternalID(tt.url, tt.marker)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ExtractExternalID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
