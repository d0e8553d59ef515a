// Package geoip resolves client IPs to ISO country codes. The locale
// middleware uses the country as a last-resort hint when a request carries
// no language preference at all.
package geoip

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Resolver looks up countries in a MaxMind GeoIP2/GeoLite2 database.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the database at path. An empty path returns a nil
// resolver: geo hints are optional and the service runs without them.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database %q: %w", path, err)
	}
	return &Resolver{reader: reader}, nil
}

// CountryCode returns the uppercase ISO 3166-1 code for ip, or "" when the
// database has no record for it. The signature matches the locale
// middleware's CountryLookup, so a resolver method value plugs in directly.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", fmt.Errorf("geoip: resolver not configured")
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	// Loopback and RFC 1918 addresses never resolve; skip the lookup so
	// local development does not log a miss per request.
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return "", nil
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup %q: %w", ip, err)
	}
	if record == nil {
		return "", nil
	}
	return strings.ToUpper(record.Country.IsoCode), nil
}

// Close releases the memory-mapped database.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
