package config

import (
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"
)

// geoIPConf configures the optional GeoIP enrichment of verification
// entries with the requester's country
type geoIPConf struct {
	// Database is the path to a MaxMind country or city database
	Database string `yaml:"database"`
}

func (c *geoIPConf) validate() error {
	if c.Database != "" && !fileutils.FileExists(c.Database) {
		return errors.Errorf("error in geoip conf: database '%s' does not exist", c.Database)
	}
	return nil
}
