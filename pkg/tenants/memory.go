// pkg/tenants/memory.go
package tenants

import (
	"context"

	"go.uber.org/zap"

	"amsplayer/pkg/config"
)

type memProvider struct {
	log   *zap.SugaredLogger
	byOrg map[string]Credentials
}

// NewMemoryProvider serves settings from the YAML seed's organizations list.
func NewMemoryProvider(log *zap.SugaredLogger, orgs []config.OrgSeed) Provider {
	p := &memProvider{log: log, byOrg: map[string]Credentials{}}
	for _, o := range orgs {
		p.byOrg[o.Organization] = Credentials(o.AzureSettings)
	}
	log.Debugw("memory settings provider ready", "organizations", len(p.byOrg))
	return p
}

func (m *memProvider) GetAzureSettings(ctx context.Context, org string) (Credentials, error) {
	if c, ok := m.byOrg[org]; ok {
		return c, nil
	}
	return Credentials{}, ErrNotFound
}
