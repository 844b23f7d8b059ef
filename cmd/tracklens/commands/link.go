package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
)

func newLinkCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link youtube|spotify ARTIST TITLE",
		Short: "Print a listen link for a track.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseLinkKind(args[0])
			if err != nil {
				return err
			}

			rt, err := newRuntime(cmd.Context(), root.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			url, ok := rt.links.ResolveListenLink(cmd.Context(), kind, args[1], args[2])
			if !ok {
				return fmt.Errorf("no %s link found for %s - %s", kind, args[1], args[2])
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
