package certkeeper

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"

	"github.com/certkeeper/certkeeper/api/adminapi"
	"github.com/certkeeper/certkeeper/api/apimodel"
	"github.com/certkeeper/certkeeper/internal/version"
	"github.com/certkeeper/certkeeper/verification"
)

// maxBatchSize limits the number of certificate numbers in a batch request
const maxBatchSize = 100

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	ErrorHandler:   apimodel.HandleError,
	Network:        "tcp",
	UnescapePath:   true,
}

// CertKeeper serves the public verification endpoints and the admin api
type CertKeeper struct {
	server      *fiber.App
	adminServer *fiber.App
	adminPort   int
	serverConf  ServerConf
	verifier    *verification.Service
}

// Options configures a CertKeeper
type Options struct {
	// AccessLog configures the access log; nil uses the fiber defaults
	AccessLog *logger.Config
	// AdminAPI mounts the admin api under /api/v1/admin if set
	AdminAPI *adminapi.Services
	// AdminPort serves the admin api on its own plain http server; 0 mounts
	// it on the main server
	AdminPort int
}

// NewCertKeeper creates a new CertKeeper
func NewCertKeeper(serverConf ServerConf, verifier *verification.Service, opts Options) (*CertKeeper, error) {
	server := newServer(serverConf, opts.AccessLog)
	ck := &CertKeeper{
		server:     server,
		serverConf: serverConf,
		verifier:   verifier,
	}
	ck.registerVerificationEndpoints()
	if opts.AdminAPI != nil {
		adminServer := server
		if opts.AdminPort > 0 {
			adminServer = newServer(serverConf, opts.AccessLog)
			ck.adminServer = adminServer
			ck.adminPort = opts.AdminPort
		}
		if err := adminapi.Register(adminServer.Group("/api/v1/admin"), *opts.AdminAPI); err != nil {
			return nil, err
		}
	}
	return ck, nil
}

func newServer(serverConf ServerConf, accessLog *logger.Config) *fiber.App {
	conf := FiberServerConfig
	if tps := serverConf.TrustedProxies; len(tps) > 0 {
		conf.TrustedProxies = serverConf.TrustedProxies
		conf.EnableTrustedProxyCheck = true
	}
	conf.ProxyHeader = serverConf.ForwardedIPHeader
	server := fiber.New(conf)
	server.Use(recover.New())
	server.Use(compress.New())
	if accessLog != nil {
		server.Use(logger.New(*accessLog))
	} else {
		server.Use(logger.New())
	}
	server.Use(requestid.New())
	server.Use(
		func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderServer, version.UserAgent())
			return c.Next()
		},
	)
	return server
}

// HttpHandlerFunc returns an http.HandlerFunc for serving all the necessary endpoints
func (ck CertKeeper) HttpHandlerFunc() http.HandlerFunc {
	return adaptor.FiberApp(ck.server)
}

// App returns the underlying fiber.App
func (ck CertKeeper) App() *fiber.App {
	return ck.server
}

// AdminApp returns the fiber.App serving the admin api; this is App() unless
// a separate admin port is configured
func (ck CertKeeper) AdminApp() *fiber.App {
	if ck.adminServer != nil {
		return ck.adminServer
	}
	return ck.server
}

// Listen starts an http server at the specific address for serving all the
// necessary endpoints
func (ck CertKeeper) Listen(addr string) error {
	return ck.server.Listen(addr)
}

// Start starts the server as configured and blocks
func (ck CertKeeper) Start() {
	conf := ck.serverConf
	if ck.adminServer != nil {
		log.WithField("port", ck.adminPort).Info("starting admin api server")
		go func() {
			log.WithError(ck.adminServer.Listen(listenAddr(conf.IPListen, ck.adminPort))).Fatal()
		}()
	}
	if !conf.TLS.Enabled {
		log.WithField("port", conf.Port).Info("TLS is disabled starting http server")
		log.WithError(ck.server.Listen(listenAddr(conf.IPListen, conf.Port))).Fatal()
	}
	// TLS enabled
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				//goland:noinspection HttpUrlsUsage
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		log.Info("TLS and http redirect enabled, starting redirect server on port 80")
		go func() {
			log.WithError(httpServer.Listen(listenAddr(conf.IPListen, 80))).Fatal()
		}()
	}
	time.Sleep(time.Millisecond) // This is just for a more pretty output with the tls header printed after the http one
	log.Info("TLS enabled, starting https server on port 443")
	log.WithError(ck.server.ListenTLS(listenAddr(conf.IPListen, 443), conf.TLS.Cert, conf.TLS.Key)).Fatal()
}

// Shutdown gracefully shuts down the server
func (ck CertKeeper) Shutdown() error {
	if ck.adminServer != nil {
		if err := ck.adminServer.Shutdown(); err != nil {
			return err
		}
	}
	return ck.server.Shutdown()
}

func listenAddr(ip string, port int) string {
	return net.JoinHostPort(ip, fmt.Sprint(port))
}
