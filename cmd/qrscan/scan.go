package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/qrscan/internal/qrcode"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
	"github.com/BrandonDHaskell/qrscan/internal/render"
)

func (c *cli) scanCmd() *cobra.Command {
	var (
		facing  string
		perform bool
	)
	cmd := &cobra.Command{
		Use:   "scan <image>...",
		Short: "Run a scan session over image frames and record the first code found",
		Long: `Plays the given PNG/JPEG files as camera frames, one per frame interval,
until one decodes.  The payload is added to history, classified, and its
suggested action shown.  Ctrl-C cancels the session.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if facing == "" {
				facing = c.cfg.DefaultFacing
			}
			f := types.Facing(facing)
			if !f.Valid() {
				return fmt.Errorf("invalid facing %q", facing)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := c.open(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			interval := time.Duration(c.cfg.FrameIntervalMS) * time.Millisecond
			cam := qrcode.NewFileCamera(args, interval, c.logger.Named("camera"))
			ctrl := service.NewScanController(cam, qrcode.NewDecoder(), a.history, service.ScanControllerOptions{
				Facing: f,
				Logger: c.logger.Named("scan"),
			})

			outcomes, err := ctrl.Start(ctx)
			if err != nil {
				return err
			}
			outcome := <-outcomes

			w := cmd.OutOrStdout()
			th := c.theme(cmd.Context(), a.prefs)
			switch outcome.Reason {
			case service.EndDecoded:
				fmt.Fprintln(w, render.Result(th, outcome.Result))
				if perform {
					if err := outcome.Result.Action.Perform(cmd.Context(), terminalActions{w: w, th: th}); err != nil {
						return err
					}
				}
				return persistWarning(cmd, a)
			case service.EndCancelled:
				fmt.Fprintln(w, "Scan cancelled")
				return nil
			default:
				if errors.Is(outcome.Err, qrcode.ErrFramesExhausted) {
					return errors.New("no QR code found in the given images")
				}
				return fmt.Errorf("camera error: %w", outcome.Err)
			}
		},
	}
	cmd.Flags().StringVar(&facing, "facing", "", "camera facing, environment or user (default from config)")
	cmd.Flags().BoolVar(&perform, "open", false, "perform the suggested action after a successful scan")
	return cmd
}
