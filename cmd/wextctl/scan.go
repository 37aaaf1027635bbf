package main

import (
	"context"
	"fmt"

	"github.com/mdlayher/wext"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	scanSSID    string
	scanChannel int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Request a scan and wait for it to complete",
	Long: `Request a scan, optionally for one SSID on one channel, and wait until
the driver reports completion or the scan timeout expires.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := wext.ScanParams{
			SSID:    []byte(scanSSID),
			Channel: scanChannel,
		}

		return withSession(cmd.Context(), cfg, func(ctx context.Context, s *session) error {
			g, gctx := errgroup.WithContext(ctx)
			lctx, stop := context.WithCancel(gctx)

			g.Go(func() error {
				return s.listen(lctx, nil)
			})

			g.Go(func() error {
				defer stop()

				if err := s.do(gctx, func(d *wext.Driver) error { return d.Scan(p) }); err != nil {
					return err
				}

				select {
				case <-s.sup.scanDone:
					fmt.Fprintln(cmd.OutOrStdout(), "scan complete")
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})

			return g.Wait()
		})
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanSSID, "ssid", "", "scan only for this SSID")
	scanCmd.Flags().IntVar(&scanChannel, "channel", 0, "scan only this channel")
	rootCmd.AddCommand(scanCmd)
}
