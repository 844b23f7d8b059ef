package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
	"github.com/ewilliams-labs/tracklens/internal/core/services"
)

func TestBrowseCandidates(t *testing.T) {
	color.NoColor = true

	searcher := &stubSearcher{resp: ports.LyricSearchResponse{
		SongsPresent: true,
		Songs: []domain.Candidate{
			{Title: "Yellow", Artist: "Coldplay"},
			{Title: "Fix You", Artist: "Coldplay"},
		},
	}}
	rt := &runtime{lyrics: services.NewLyricSearchSession(searcher)}
	rt.lyrics.Search(context.Background(), "look at the stars")

	var out bytes.Buffer
	in := strings.NewReader("n\nbogus\np\nq\n")
	err := browseCandidates(context.Background(), in, &out, rt)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Coldplay - Fix You  (2/2)")
	assert.Contains(t, text, "Coldplay - Yellow  (1/2)")
	assert.Contains(t, text, `unknown command "bogus"`)
}

func TestBrowseCandidates_NewSnippet(t *testing.T) {
	color.NoColor = true

	searcher := &stubSearcher{resp: ports.LyricSearchResponse{NotFound: true}}
	rt := &runtime{lyrics: services.NewLyricSearchSession(searcher)}

	var out bytes.Buffer
	err := browseCandidates(context.Background(), strings.NewReader("/hello darkness\n"), &out, rt)
	require.NoError(t, err)

	assert.Equal(t, "hello darkness", searcher.last)
	assert.Contains(t, out.String(), domain.MessageNoMatch)
}

func TestWaitForUpstream(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		p := &stubPinger{failures: 1}
		err := waitForUpstream(context.Background(), p, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 2, p.calls)
	})

	t.Run("times out", func(t *testing.T) {
		p := &stubPinger{failures: 100}
		err := waitForUpstream(context.Background(), p, 50*time.Millisecond)
		require.Error(t, err)
	})
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "3:05", formatSeconds(184.6))
	assert.Equal(t, "0:00", formatSeconds(0))
}

type stubSearcher struct {
	resp ports.LyricSearchResponse
	last string
}

func (s *stubSearcher) SearchByLyricSnippet(ctx context.Context, snippet string) (ports.LyricSearchResponse, error) {
	s.last = snippet
	return s.resp, nil
}

type stubPinger struct {
	failures int
	calls    int
}

func (p *stubPinger) Ping(ctx context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}
