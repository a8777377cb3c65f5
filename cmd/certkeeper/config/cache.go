package config

import (
	"time"

	"github.com/zachmann/go-utils/duration"

	"github.com/certkeeper/certkeeper/internal/cache"
)

type cachingConf struct {
	RedisAddr   string                  `yaml:"redis_addr"`
	Username    string                  `yaml:"username"`
	Password    string                  `yaml:"password"`
	RedisDB     int                     `yaml:"redis_db"`
	Disabled    bool                    `yaml:"disabled"`
	MaxSize     int                     `yaml:"max_size"`
	MaxLifetime duration.DurationOption `yaml:"max_lifetime"`
}

var defaultCachingConf = cachingConf{
	MaxSize:     10000,
	MaxLifetime: duration.DurationOption(5 * time.Minute),
}

// NewCache creates the configured cache; it returns nil if caching is
// disabled
func NewCache(c cachingConf) (cache.Cache, error) {
	if c.Disabled {
		return nil, nil
	}
	return cache.New(
		cache.Options{
			RedisAddr: c.RedisAddr,
			Username:  c.Username,
			Password:  c.Password,
			RedisDB:   c.RedisDB,
			MaxSize:   c.MaxSize,
		},
	)
}
