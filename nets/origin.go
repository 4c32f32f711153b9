package nets

import (
	"net"
	"net/url"
	"slices"
)

// IsAllowedOrigin gates cross origin requests. With no configured
// allow list, only loopback origins pass, so a local frontend works
// out of the box without opening the server to the world.
type IsAllowedOrigin func(origin string) bool

func (Module) IsAllowedOrigin(
	origins Origins,
) IsAllowedOrigin {
	return func(origin string) bool {
		if origin == "" {
			return false
		}
		if len(origins) > 0 {
			return slices.Contains(origins, origin)
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		if host == "localhost" {
			return true
		}
		ip := net.ParseIP(host)
		return ip != nil && ip.IsLoopback()
	}
}
