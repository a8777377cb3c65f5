package config

import (
	"github.com/pkg/errors"
)

// apiConf holds API-related configuration
type apiConf struct {
	Admin adminAPIConf `yaml:"admin"`
}

type adminAPIConf struct {
	Enabled bool `yaml:"enabled"`
	// Port serves the admin api on a separate port; 0 means use the main
	// server
	Port int `yaml:"port"`
}

func (c *apiConf) validate(serverPort int) error {
	if c.Admin.Port < 0 {
		return errors.New("error in api conf: admin port must not be negative")
	}
	if c.Admin.Port != 0 && c.Admin.Port == serverPort {
		return errors.New("error in api conf: admin port must differ from the server port")
	}
	return nil
}

var defaultAPIConf = apiConf{
	Admin: adminAPIConf{
		Enabled: true,
		Port:    0, // 0 means use main server
	},
}
