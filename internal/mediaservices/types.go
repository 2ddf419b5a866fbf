package mediaservices

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LocatorType uses the Media Services v2 numeric codes.
type LocatorType int

const (
	LocatorNone           LocatorType = 0
	LocatorSAS            LocatorType = 1
	LocatorOnDemandOrigin LocatorType = 2
)

func (t LocatorType) String() string {
	switch t {
	case LocatorSAS:
		return "SAS"
	case LocatorOnDemandOrigin:
		return "OnDemandOrigin"
	default:
		return "None"
	}
}

// AssetKind selects which asset derived from an uploaded video is wanted.
// Pipeline-created assets are named "<anything>::<KIND>".
type AssetKind string

const (
	AssetEncoded AssetKind = "ENCODED"
	AssetSource  AssetKind = "SOURCE"
)

type Asset struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	AlternateID string `json:"AlternateId"`
	State       int    `json:"State"`
}

type Locator struct {
	ID                 string      `json:"Id"`
	AssetID            string      `json:"AssetId"`
	Type               LocatorType `json:"Type"`
	Path               string      `json:"Path"`
	Name               string      `json:"Name,omitempty"`
	ExpirationDateTime *time.Time  `json:"ExpirationDateTime,omitempty"`
}

type AssetFile struct {
	Name      string  `json:"Name"`
	MimeType  string  `json:"MimeType"`
	SizeBytes flexInt `json:"ContentFileSize"`
}

// flexInt accepts both JSON numbers and the quoted integers Media Services
// emits for Edm.Int64 fields.
type flexInt int64

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("integer field: %w", err)
	}
	*n = flexInt(v)
	return nil
}

// StatusError is returned for any non-200 Media Services response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mediaservices %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}
