package types

import (
	"context"
	"fmt"
)

// ActionKind identifies the side effect a suggested action performs.
type ActionKind string

const (
	ActionOpenURL     ActionKind = "open_url"
	ActionComposeMail ActionKind = "compose_mail"
	ActionDial        ActionKind = "dial"
	ActionNotice      ActionKind = "notice"
)

// Action is a one-click follow-up offered for a classified payload.
// Target is a navigable URI for open_url/compose_mail/dial and the message
// text for notice.
type Action struct {
	Label  string     `json:"label"`
	Kind   ActionKind `json:"kind"`
	Target string     `json:"target"`
}

// ActionHandler performs the effects.  Implementations decide what "open"
// means for their surface (browser, terminal, HTTP client).
type ActionHandler interface {
	OpenURL(ctx context.Context, url string) error
	ComposeMail(ctx context.Context, mailto string) error
	Dial(ctx context.Context, tel string) error
	Notice(ctx context.Context, msg string) error
}

// Perform dispatches the action to h.
func (a *Action) Perform(ctx context.Context, h ActionHandler) error {
	if a == nil {
		return nil
	}
	switch a.Kind {
	case ActionOpenURL:
		return h.OpenURL(ctx, a.Target)
	case ActionComposeMail:
		return h.ComposeMail(ctx, a.Target)
	case ActionDial:
		return h.Dial(ctx, a.Target)
	case ActionNotice:
		return h.Notice(ctx, a.Target)
	default:
		return fmt.Errorf("unsupported action kind %q", a.Kind)
	}
}
