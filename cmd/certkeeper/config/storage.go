package config

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/certkeeper/certkeeper/storage"
	"github.com/certkeeper/certkeeper/storage/model"
)

var defaultStorageConf = storage.Config{
	Driver: storage.DriverSQLite,
	DSNConf: storage.DSNConf{
		User: "certkeeper",
		Host: "localhost",
		DB:   "certkeeper",
	},
}

func validateStorage(c storage.Config) error {
	return errors.Wrap(c.Validate(), "error in storage conf")
}

// LoadStorageBackends opens the configured database and returns its backends
func LoadStorageBackends(c storage.Config) (model.Backends, error) {
	warehouse, err := storage.Open(c)
	if err != nil {
		return model.Backends{}, err
	}
	log.WithField("driver", c.Driver).Info("Loaded storage backend")
	return warehouse.Backends(), nil
}

// OpenArchive opens the verification archive if one is configured; it
// returns nil otherwise
func OpenArchive(c storage.Config) (*storage.VerificationArchive, error) {
	archive, err := c.OpenArchive()
	if err != nil || archive == nil {
		return nil, err
	}
	log.WithField("dir", c.ArchiveDir).Info("Opened verification archive")
	return archive, nil
}
