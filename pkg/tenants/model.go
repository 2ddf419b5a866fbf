package tenants

import "strings"

// Credentials are the Azure AD service principal plus the Media Services
// REST endpoint for one organization (or the platform default).
type Credentials struct {
	ClientID        string // Azure AD application (client) id
	ClientSecret    string // Azure AD application key
	Tenant          string // Azure AD tenant domain where the application resides
	RESTAPIEndpoint string // e.g. https://acct.restv2.westeurope.media.azure.net/api/
}

// Complete reports whether every field needed to call Media Services is set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != "" &&
		strings.TrimSpace(c.Tenant) != "" &&
		strings.TrimSpace(c.RESTAPIEndpoint) != ""
}

// OrgSettings is one persisted settings record.
type OrgSettings struct {
	Organization string
	Credentials
}
