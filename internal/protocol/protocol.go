// Package protocol aggregates the generated CDP domain packages into the
// event registry used by sessions.
package protocol

import (
	"sync"

	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/protocol/browser"
	"github.com/grantcarthew/cdpsession/internal/protocol/dom"
	"github.com/grantcarthew/cdpsession/internal/protocol/network"
	"github.com/grantcarthew/cdpsession/internal/protocol/page"
	"github.com/grantcarthew/cdpsession/internal/protocol/runtime"
	"github.com/grantcarthew/cdpsession/internal/protocol/target"
)

// Events returns the descriptors of every known event, across all domains.
func Events() []cdp.EventDescriptor {
	var all []cdp.EventDescriptor
	for _, domain := range [][]cdp.EventDescriptor{
		browser.Events(),
		dom.Events(),
		network.Events(),
		page.Events(),
		runtime.Events(),
		target.Events(),
	} {
		all = append(all, domain...)
	}
	return all
}

var registry = sync.OnceValue(func() *cdp.Registry {
	return cdp.MustRegistry(Events()...)
})

// Registry returns the shared, immutable event registry.
func Registry() *cdp.Registry {
	return registry()
}
