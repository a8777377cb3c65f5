// Package config loads the certkeeper configuration file
package config

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/certkeeper/certkeeper"
	"github.com/certkeeper/certkeeper/storage"
)

// Config holds the configuration of certkeeper
type Config struct {
	Server       certkeeper.ServerConf `yaml:"server"`
	Logging      loggingConf           `yaml:"logging"`
	Storage      storage.Config        `yaml:"storage"`
	Caching      cachingConf           `yaml:"cache"`
	API          apiConf               `yaml:"api"`
	Verification verificationConf      `yaml:"verification"`
	GeoIP        geoIPConf             `yaml:"geoip"`
	Retention    retentionConf         `yaml:"retention"`
}

var conf *Config

var possibleConfigLocations = []string{
	".",
	"config",
	"/config",
	"/certkeeper/config",
	"/certkeeper",
	"/data/config",
	"/data",
	"/etc/certkeeper",
}

// Get returns the Config
func Get() *Config {
	return conf
}

func defaultConfig() *Config {
	return &Config{
		Server: certkeeper.ServerConf{
			Port: 7672,
		},
		Logging:      defaultLoggingConf,
		Storage:      defaultStorageConf,
		Caching:      defaultCachingConf,
		API:          defaultAPIConf,
		Verification: defaultVerificationConf,
		Retention:    defaultRetentionConf,
	}
}

func (c *Config) validate() error {
	if c.Server.TLS.Enabled {
		if c.Server.TLS.Cert == "" || c.Server.TLS.Key == "" {
			return errors.New("error in server conf: tls cert and key must be specified if tls is enabled")
		}
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if err := validateStorage(c.Storage); err != nil {
		return err
	}
	if err := c.API.validate(c.Server.Port); err != nil {
		return err
	}
	if err := c.Verification.validate(); err != nil {
		return err
	}
	if err := c.GeoIP.validate(); err != nil {
		return err
	}
	return c.Retention.validate()
}

// Parse parses a yaml config and validates it
func Parse(data []byte) (*Config, error) {
	c := defaultConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "could not parse config")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func findConfigFile(filename string) string {
	if filename == "" {
		filename = "config.yaml"
	}
	if fileutils.FileExists(filename) {
		return filename
	}
	for _, dir := range possibleConfigLocations {
		p := dir + "/" + filename
		if fileutils.FileExists(p) {
			return p
		}
	}
	return ""
}

// Load loads the config from the passed file; if the file cannot be found
// the default locations are searched. It exits the program on errors.
func Load(filename string) {
	path := findConfigFile(filename)
	if path == "" {
		log.WithField("filename", filename).Fatal("could not find config file in any of the possible locations")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Fatal("could not read config file")
	}
	c, err := Parse(data)
	if err != nil {
		log.WithError(err).WithField("file", path).Fatal("invalid config")
	}
	conf = c
}
