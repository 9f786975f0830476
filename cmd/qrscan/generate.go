package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/qrscan/internal/qrcode"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
	"github.com/BrandonDHaskell/qrscan/internal/render"
)

func (c *cli) generateCmd() *cobra.Command {
	var (
		size  int
		out   string
		svg   bool
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "generate <text>...",
		Short: "Encode text as a QR code and save it as qrcode.png",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if size == 0 {
				size = c.cfg.GeneratorSize
			}

			gen := service.NewGenerator(qrcode.NewEncoder())
			gr, err := gen.Generate(strings.Join(args, " "), size)
			if errors.Is(err, service.ErrEmptyText) {
				// Nothing to render; same as clearing the preview.
				return nil
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !quiet {
				if bm, ok := gr.(interface{ Bitmap() [][]bool }); ok {
					fmt.Fprint(w, render.Symbol(bm.Bitmap()))
				}
			}

			var name string
			var data []byte
			if svg {
				name, data = "qrcode.svg", []byte(gr.SVG())
			} else {
				f, err := service.DownloadAsImage(gr)
				if err != nil {
					return err
				}
				name, data = f.Name, f.Data
			}

			path := out
			if path == "" {
				path = name
			} else if st, err := os.Stat(path); err == nil && st.IsDir() {
				path = filepath.Join(path, name)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(w, "Saved %dx%d code to %s\n", gr.Size(), gr.Size(), path)
			return nil
		},
	}
	cmd.Flags().IntVarP(&size, "size", "s", 0, "image size in pixels, 128-512 (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default ./qrcode.png)")
	cmd.Flags().BoolVar(&svg, "svg", false, "write SVG instead of PNG")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not draw the code in the terminal")
	return cmd
}
