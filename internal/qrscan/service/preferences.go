package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/store"
)

// Preferences persists the display-mode flag under its own key.
type Preferences struct {
	kv store.KVStore
}

func NewPreferences(kv store.KVStore) *Preferences {
	return &Preferences{kv: kv}
}

// DarkMode defaults to false when the key has never been written.
func (p *Preferences) DarkMode(ctx context.Context) (bool, error) {
	blob, err := p.kv.Get(ctx, store.KeyDarkMode)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read dark mode: %w", err)
	}

	var on bool
	if err := json.Unmarshal(blob, &on); err != nil {
		return false, fmt.Errorf("decode dark mode %q: %w", blob, err)
	}
	return on, nil
}

func (p *Preferences) SetDarkMode(ctx context.Context, on bool) error {
	blob, _ := json.Marshal(on)
	if err := p.kv.Put(ctx, store.KeyDarkMode, blob); err != nil {
		return fmt.Errorf("%w: write dark mode: %v", ErrPersistenceUnavailable, err)
	}
	return nil
}

func (p *Preferences) ToggleDarkMode(ctx context.Context) (bool, error) {
	on, err := p.DarkMode(ctx)
	if err != nil {
		return false, err
	}
	on = !on
	return on, p.SetDarkMode(ctx, on)
}
