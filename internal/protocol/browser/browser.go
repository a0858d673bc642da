// Package browser provides commands of the CDP Browser domain.
package browser

import (
	"context"

	"github.com/grantcarthew/cdpsession/internal/cdp"
)

// Command method names.
const (
	CommandGetVersion = "Browser.getVersion"
	CommandClose      = "Browser.close"
)

// VersionResult is the result of Browser.getVersion. The browser returns
// several named members, so the whole result object is decoded.
type VersionResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	Product         string `json:"product"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JSVersion       string `json:"jsVersion"`
}

// GetVersion returns version information.
func GetVersion() cdp.Command[VersionResult] {
	return cdp.NewCommand[VersionResult](CommandGetVersion)
}

// Close closes the browser gracefully.
func Close() cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandClose)
}

// Events returns the descriptors of every Browser event. The domain
// declares none that this client consumes.
func Events() []cdp.EventDescriptor {
	return nil
}

// Domain is a borrowed handle for issuing Browser commands on a session.
type Domain struct {
	s *cdp.Session
}

// Use returns the Browser handle for s.
func Use(s *cdp.Session) Domain {
	return Domain{s: s}
}

// GetVersion returns version information.
func (d Domain) GetVersion(ctx context.Context) (VersionResult, error) {
	return cdp.Send(ctx, d.s, GetVersion())
}
