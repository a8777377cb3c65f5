// Package geoip resolves client IP addresses to ISO country codes using a
// MaxMind database.
package geoip

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
	"github.com/pkg/errors"
)

// Locator looks up the country of IP addresses
type Locator struct {
	reader *maxminddb.Reader
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open opens the MaxMind database at path
func Open(path string) (*Locator, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open geoip database '%s'", path)
	}
	return &Locator{reader: reader}, nil
}

// Country returns the ISO country code for ip; it is empty if the database
// has no country for the address
func (l *Locator) Country(ip string) (string, error) {
	if l == nil || l.reader == nil {
		return "", nil
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", errors.Errorf("invalid ip address '%s'", ip)
	}
	var rec countryRecord
	if err := l.reader.Lookup(parsed, &rec); err != nil {
		return "", errors.Wrap(err, "geoip lookup failed")
	}
	return rec.Country.ISOCode, nil
}

// Close closes the underlying database
func (l *Locator) Close() error {
	if l == nil || l.reader == nil {
		return nil
	}
	return l.reader.Close()
}
