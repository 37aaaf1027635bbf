package main

import (
	"context"
	"fmt"

	"github.com/mdlayher/wext"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print wireless events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd.Context(), cfg, func(ctx context.Context, s *session) error {
			return s.listen(ctx, func(ev wext.WirelessEvent) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d bytes)\n",
					s.d.Name(), ev, len(ev.Data))
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
}
