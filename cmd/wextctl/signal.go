package main

import (
	"context"
	"fmt"

	"github.com/mdlayher/wext"
	"github.com/spf13/cobra"
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Print the signal strength and transmit rate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd.Context(), cfg, func(ctx context.Context, s *session) error {
			var info wext.SignalInfo
			err := s.do(ctx, func(d *wext.Driver) error {
				var err error
				info, err = d.Signal()
				return err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "signal: %d dBm\ntx rate: %d kbit/s\n",
				info.Signal, info.TransmitRate)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(signalCmd)
}
