package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mdlayher/wext"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var driverCmd = &cobra.Command{
	Use:   "driver <command>...",
	Short: "Issue driver commands in order",
	Long: `Issue each argument as one driver command, in order, on a single
driver instance. Each invocation starts a new, stopped driver, so START is
issued first unless it is already the first command. Query responses are
printed.`,
	Example: `  wextctl driver RSSI-APPROX
  wextctl driver "SCAN-CHANNELS 13" "CSCAN 6,TIME=600"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmds := driverCommands(args)

		return withSession(cmd.Context(), cfg, func(ctx context.Context, s *session) error {
			b := make([]byte, cfg.Driver.BufferSize)

			for _, text := range cmds {
				var n int
				err := s.do(ctx, func(d *wext.Driver) error {
					var err error
					n, err = d.Command(text, b)
					return err
				})
				if err != nil {
					return errors.Wrapf(err, "driver command %q", text)
				}

				if n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", text, b[:n])
				}
			}

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(driverCmd)
}

// driverCommands returns the commands to issue for args, with START first
// unless args already begin with it.
func driverCommands(args []string) []string {
	if len(args) > 0 && strings.EqualFold(args[0], "START") {
		return args
	}

	return append([]string{"START"}, args...)
}
