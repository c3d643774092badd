package hostconfig

import "hijack-addon/hijack/internal/settings"

// Chain consults its hosts in order; the first that defines a name wins.
type Chain []settings.Host

func (c Chain) Lookup(name string) (any, bool) {
	for _, h := range c {
		if v, ok := h.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}
