// Package rpid resolves the WebAuthn relying party id for a request.
package rpid

import (
	"net"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DefaultID is used when neither an override nor request headers yield a host.
const DefaultID = "localhost"

// Resolver computes the relying party id. A non-empty Override always wins.
type Resolver struct {
	Override string
}

// New builds a resolver with an optional override.
func New(override string) Resolver {
	return Resolver{Override: strings.TrimSpace(override)}
}

// Resolve applies, in order: the override, the Origin header hostname, the
// Host header hostname and finally DefaultID. A leading "www." is dropped from
// header derived values.
func (r Resolver) Resolve(origin, host string) string {
	if r.Override != "" {
		return r.Override
	}
	if h := originHostname(origin); h != "" {
		return stripWWW(h)
	}
	if h := hostname(host); h != "" {
		return stripWWW(h)
	}
	return DefaultID
}

// FromRequest resolves the id from the Origin and Host headers of c.
func (r Resolver) FromRequest(c *fiber.Ctx) string {
	return r.Resolve(c.Get(fiber.HeaderOrigin), c.Get(fiber.HeaderHost))
}

func originHostname(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "null" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func hostname(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

func stripWWW(h string) string {
	return strings.TrimPrefix(h, "www.")
}
