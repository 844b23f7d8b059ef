package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
)

func newLyricsCommand(root *rootOptions) *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "lyrics SNIPPET...",
		Short: "Find songs by a remembered lyric snippet.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), root.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			st := rt.lyrics.Search(cmd.Context(), strings.Join(args, " "))
			printLyricState(cmd.OutOrStdout(), st)
			if !interactive || st.Status != domain.StatusHasResults {
				return nil
			}
			return browseCandidates(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), rt)
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", true, "Step through candidates with n/p/q")
	return cmd
}

// browseCandidates reads n (next), p (previous), a new snippet prefixed with
// "/" or q (quit) from in.
func browseCandidates(ctx context.Context, in io.Reader, out io.Writer, rt *runtime) error {
	scanner := bufio.NewScanner(in)
	for {
		colorPrompt.Fprint(out, "[n]ext [p]revious [/snippet] [q]uit > ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		var st domain.LyricSearchState
		switch {
		case line == "q" || line == "quit":
			return nil
		case line == "n" || line == "":
			st = rt.lyrics.Next()
		case line == "p":
			st = rt.lyrics.Previous()
		case strings.HasPrefix(line, "/"):
			st = rt.lyrics.Search(ctx, strings.TrimPrefix(line, "/"))
		default:
			colorWarning.Fprintf(out, "unknown command %q\n", line)
			continue
		}
		printLyricState(out, st)
	}
}
