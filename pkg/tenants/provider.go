package tenants

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an organization has no settings record.
var ErrNotFound = errors.New("azure settings not found")

type Provider interface {
	// Settings record for the organization, ErrNotFound if there is none.
	GetAzureSettings(ctx context.Context, org string) (Credentials, error)
}
