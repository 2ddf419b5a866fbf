package tenants

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ResolveCredentials looks up the organization's own settings, then the
// platform default. The second return value is false when neither yields a
// complete credential set; callers branch on it rather than on an error.
func ResolveCredentials(ctx context.Context, log *zap.SugaredLogger, prov Provider, org string, platform Credentials) (Credentials, bool) {
	if prov != nil && org != "" {
		c, err := prov.GetAzureSettings(ctx, org)
		switch {
		case err == nil && c.Complete():
			return c, true
		case err == nil:
			log.Warnw("incomplete azure settings for organization", "org", org)
		case !errors.Is(err, ErrNotFound):
			// lookup errors fail closed; the platform block only covers unconfigured orgs
			log.Errorw("azure settings lookup failed", "org", org, "err", err)
			return Credentials{}, false
		}
	}
	if platform.Complete() {
		return platform, true
	}
	return Credentials{}, false
}
