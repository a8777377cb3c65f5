package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/certkeeper/certkeeper"
	"github.com/certkeeper/certkeeper/api/adminapi"
	"github.com/certkeeper/certkeeper/cmd/certkeeper/config"
	"github.com/certkeeper/certkeeper/internal/geoip"
	"github.com/certkeeper/certkeeper/internal/logger"
	"github.com/certkeeper/certkeeper/issuance"
	"github.com/certkeeper/certkeeper/verification"
)

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	config.Load(configFile)
	c := config.Get()
	loggerOpts := c.Logging.LoggerOptions()
	if err := logger.Init(loggerOpts); err != nil {
		log.WithError(err).Fatal("could not init logger")
	}
	log.Info("Loaded Config")

	backs, err := config.LoadStorageBackends(c.Storage)
	if err != nil {
		log.Fatal(err)
	}

	opts := c.Verification.ServiceOptions()
	opts.Cache, err = config.NewCache(c.Caching)
	if err != nil {
		log.WithError(err).Fatal("could not init cache")
	}
	if c.Caching.RedisAddr != "" && opts.Cache != nil {
		log.Info("Loaded Redis Cache")
	}
	opts.DetailsCacheLifetime = c.Caching.MaxLifetime.Duration()
	if db := c.GeoIP.Database; db != "" {
		locator, err := geoip.Open(db)
		if err != nil {
			log.Fatal(err)
		}
		defer locator.Close()
		opts.Geo = locator
		log.Info("Loaded GeoIP database")
	}
	verifier, err := verification.NewService(backs, opts)
	if err != nil {
		log.Fatal(err)
	}

	issuer := issuance.NewService(backs, nil, c.Verification.AllCertificateTypes()...)
	issuer.Changed = verifier.InvalidateDetails

	accessLog, err := logger.AccessLogConfig(loggerOpts)
	if err != nil {
		log.WithError(err).Fatal("could not init access log")
	}
	ckOpts := certkeeper.Options{
		AccessLog: accessLog,
	}
	if c.API.Admin.Enabled {
		services := &adminapi.Services{
			Verifier:  verifier,
			Issuer:    issuer,
			Records:   backs.Records,
			Retention: c.Retention.Policy(),
		}
		archive, err := config.OpenArchive(c.Storage)
		if err != nil {
			log.Fatal(err)
		}
		if archive != nil {
			defer archive.Close()
			services.Archive = archive
		}
		ckOpts.AdminAPI = services
		ckOpts.AdminPort = c.API.Admin.Port
	}

	ck, err := certkeeper.NewCertKeeper(c.Server, verifier, ckOpts)
	if err != nil {
		log.Fatal(err)
	}
	log.Info("Added Endpoints")

	ck.Start()
}
