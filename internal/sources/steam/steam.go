// Package steam looks up store metadata for a Steam app id.
package steam

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("app not found on steam")

type App struct {
	ID          string
	Name        string
	HeaderImage string
}

type Lookup interface {
	App(ctx context.Context, appID string) (App, error)
}
