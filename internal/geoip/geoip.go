package geoip

import (
	"log/slog"
	"net/netip"

	"github.com/oschwald/maxminddb-golang"
)

// countryRecord is the subset of a GeoLite2 Country or City entry that
// player descriptions use.
type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Locator answers which country a player's last known address belongs to.
// A Locator opened without a database knows no countries.
type Locator struct {
	db *maxminddb.Reader
}

// Open loads the MaxMind database at path. Players are still listed when the
// file is missing, just without a country, so open failures are logged and
// yield a disabled Locator.
func Open(path string) *Locator {
	if path == "" {
		return &Locator{}
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		slog.Warn("geoip: database unavailable, player countries disabled", "path", path, "error", err)
		return &Locator{}
	}
	slog.Info("geoip: database loaded", "path", path, "type", db.Metadata.DatabaseType, "built", db.Metadata.BuildEpoch)
	return &Locator{db: db}
}

func (l *Locator) Enabled() bool {
	return l.db != nil
}

// Country returns the ISO code for addr, or "" when addr is not a public
// address or is absent from the database.
func (l *Locator) Country(addr string) string {
	if l.db == nil {
		return ""
	}
	ip, ok := publicAddr(addr)
	if !ok {
		return ""
	}
	var rec countryRecord
	if err := l.db.Lookup(ip.AsSlice(), &rec); err != nil {
		slog.Debug("geoip: lookup failed", "ip", addr, "error", err)
		return ""
	}
	return rec.Country.ISOCode
}

// publicAddr parses a player address as stored in the players table. LAN
// players report private or loopback addresses that no database covers.
func publicAddr(addr string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return netip.Addr{}, false
	}
	ip = ip.Unmap()
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() || ip.IsMulticast() {
		return netip.Addr{}, false
	}
	return ip, true
}

func (l *Locator) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}
