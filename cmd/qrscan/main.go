package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BrandonDHaskell/qrscan/internal/render"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		reportError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// reportError prints a command failure.  The preference store may be the
// thing that failed, so the light theme is used unconditionally.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, render.Error(render.NewTheme(false), err))
}
