package main

import (
	"context"
	"fmt"
	"io"

	"github.com/BrandonDHaskell/qrscan/internal/render"
	"github.com/BrandonDHaskell/qrscan/internal/qrscan/types"
)

// terminalActions performs suggested actions on a terminal by printing the
// target for the user's terminal or OS to open.
type terminalActions struct {
	w  io.Writer
	th render.Theme
}

var _ types.ActionHandler = terminalActions{}

func (t terminalActions) OpenURL(_ context.Context, url string) error {
	return t.println("Open:", url)
}

func (t terminalActions) ComposeMail(_ context.Context, mailto string) error {
	return t.println("Compose:", mailto)
}

func (t terminalActions) Dial(_ context.Context, tel string) error {
	return t.println("Dial:", tel)
}

func (t terminalActions) Notice(_ context.Context, msg string) error {
	_, err := fmt.Fprintln(t.w, t.th.Warning.Render(msg))
	return err
}

func (t terminalActions) println(label, target string) error {
	_, err := fmt.Fprintln(t.w, t.th.Muted.Render(label), t.th.Action.Render(target))
	return err
}
