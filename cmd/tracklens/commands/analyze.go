package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tracklens/internal/upload"
)

type analyzeOptions struct {
	token     string
	recommend bool
	strict    bool
	progress  bool
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze audio files and enrich them with catalog features.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), root, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("TRACKLENS_AUTH_TOKEN"), "Bearer token for the analysis backend")
	cmd.Flags().BoolVar(&opts.recommend, "recommend", false, "Print related tracks from history after the last file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Only recommend tracks with a compatible key")
	cmd.Flags().BoolVar(&opts.progress, "progress", true, "Show a progress bar while reading files")
	return cmd
}

func runAnalyze(ctx context.Context, root *rootOptions, opts *analyzeOptions, paths []string) error {
	rt, err := newRuntime(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := os.Stdout
	var lastID string
	failed := 0
	for _, path := range paths {
		up, err := readUpload(path, opts.progress)
		if err != nil {
			colorError.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}

		colorInfo.Fprintf(out, "analyzing %s\n", up.Filename)
		profile, err := rt.enrichment.AnalyzeAndEnrich(ctx, up.AudioFile(), opts.token)
		if err != nil {
			colorError.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		printProfile(out, profile)
		fmt.Fprintln(out)
		lastID = profile.ID
	}

	if opts.recommend && lastID != "" {
		rt.flush()
		recs, err := rt.recommender.Recommend(ctx, lastID, opts.strict)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			colorWarning.Fprintln(out, "no related tracks in history")
		}
		for _, r := range recs {
			colorLabel.Fprintf(out, "%5.1f  ", r.Score)
			fmt.Fprintf(out, "%s - %s\n", orUnknown(r.Profile.Artist), orUnknown(r.Profile.Title))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

// readUpload buffers the file at path, drawing a progress bar on stdout when
// enabled.
func readUpload(path string, progress bool) (*upload.Upload, error) {
	if !progress {
		return upload.Open(path)
	}

	f, err := os.Open(path) // #nosec G304 -- path is supplied by the local user
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	bar := progressbar.NewOptions64(info.Size(),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan]reading[reset] "+name),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionClearOnFinish(),
	)
	pr := progressbar.NewReader(f, bar)
	up, err := upload.FromReader(name, &pr)
	_ = bar.Finish()
	return up, err
}
