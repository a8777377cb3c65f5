package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/certkeeper/certkeeper/cmd/certkeeper/config"
	"github.com/certkeeper/certkeeper/issuance"
	"github.com/certkeeper/certkeeper/verification"
)

var rootCmd = &cobra.Command{
	Use:               "ckcli",
	Short:             "ckcli can help you manage your CertKeeper",
	Long:              "ckcli can help you manage your CertKeeper",
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

var configFile string
var outputJSON bool

var verifier *verification.Service
var issuer *issuance.Service
var retention verification.RetentionPolicy

func loadConfig(*cobra.Command, []string) error {
	config.Load(configFile)
	log.Debug("Loaded Config")
	c := config.Get()

	backs, err := config.LoadStorageBackends(c.Storage)
	if err != nil {
		return err
	}
	opts := c.Verification.ServiceOptions()
	if c.Caching.RedisAddr != "" {
		// only a shared cache needs invalidation from here
		opts.Cache, err = config.NewCache(c.Caching)
		if err != nil {
			return err
		}
	}
	verifier, err = verification.NewService(backs, opts)
	if err != nil {
		return err
	}
	issuer = issuance.NewService(backs, nil, c.Verification.AllCertificateTypes()...)
	issuer.Changed = verifier.InvalidateDetails
	retention = c.Retention.Policy()
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "the config file to use")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as json")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
