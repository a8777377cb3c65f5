package storage

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Driver names a supported database backend
type Driver string

// Supported database backends
const (
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
)

// SupportedDrivers lists every Driver Open understands
var SupportedDrivers = []Driver{
	DriverSQLite,
	DriverMySQL,
	DriverPostgres,
}

// sqliteFile is the database file created inside Config.DataDir
const sqliteFile = "certkeeper.db"

// DSNConf holds the connection parameters used to build a dsn for mysql and
// postgres when no explicit dsn is configured.
type DSNConf struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"db"`
	// SSLMode is passed to postgres only
	SSLMode string `yaml:"sslmode"`
}

// Config configures the certificate database and the optional badger
// archive that receives purged verification entries.
type Config struct {
	Driver Driver `yaml:"driver"`
	// DSN overrides the connection string built from DSNConf. For sqlite it
	// is the database file path.
	DSN     string `yaml:"dsn"`
	DSNConf `yaml:",inline"`
	// DataDir holds the sqlite database file
	DataDir string `yaml:"data_dir"`
	// ArchiveDir is the badger directory for purged verifications; empty
	// disables archiving
	ArchiveDir string `yaml:"archive_dir"`
	Debug      bool   `yaml:"debug"`
}

// Validate checks that the configuration is complete enough to open a
// database connection.
func (c Config) Validate() error {
	if !slices.Contains(SupportedDrivers, c.Driver) {
		return errors.Errorf("unsupported database driver '%s'", c.Driver)
	}
	if c.DSN != "" {
		return nil
	}
	if c.Driver == DriverSQLite {
		if c.DataDir == "" {
			return errors.New("data_dir must be specified for sqlite")
		}
		return nil
	}
	if c.Host == "" || c.DB == "" {
		return errors.Errorf("either dsn or host and db must be specified for %s", c.Driver)
	}
	return nil
}

// connectionString returns the dsn for the configured driver. Built dsns pin
// the session time zone to UTC, since certificate dates are stored and
// compared as UTC days.
func (c Config) connectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case DriverSQLite:
		return filepath.Join(c.DataDir, sqliteFile)
	case DriverMySQL:
		port := c.Port
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, port, c.DB,
		)
	case DriverPostgres:
		port := c.Port
		if port == 0 {
			port = 5432
		}
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, port, c.User, c.Password, c.DB, sslMode,
		)
	}
	return ""
}

func (c Config) dialector() (gorm.Dialector, error) {
	dsn := c.connectionString()
	switch c.Driver {
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, errors.Errorf("unsupported database driver '%s'", c.Driver)
	}
}

// gormConfig returns the gorm settings shared by all drivers: UTC
// timestamps and driver-independent duplicate key errors.
func (c Config) gormConfig() *gorm.Config {
	logMode := logger.Silent
	if c.Debug {
		logMode = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
}

// Open validates the configuration, connects to the database and migrates
// the certificate schemas.
func Open(c Config) (*Storage, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dialector, err := c.dialector()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, c.gormConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s database", c.Driver)
	}
	return NewStorageFromDB(db)
}

// OpenArchive opens the configured verification archive, or returns nil when
// no archive_dir is set.
func (c Config) OpenArchive() (*VerificationArchive, error) {
	if c.ArchiveDir == "" {
		return nil, nil
	}
	return OpenVerificationArchive(c.ArchiveDir)
}
