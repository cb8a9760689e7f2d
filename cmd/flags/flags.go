package flags

import (
	"crypto/ecdsa"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/certificate-registry/api"
	"github.com/ruteri/certificate-registry/api/clients"
	"github.com/ruteri/certificate-registry/common"
	"github.com/ruteri/certificate-registry/cryptoutils"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
		Output:  cCtx.App.ErrWriter,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) api.HTTPServerConfig {
	return api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxBodyBytes:             cCtx.Int64(MaxBodyBytesFlag.Name),
	}
}

// SigningKey loads the caller key from --key or --key-file. It returns nil
// without error when neither is set.
func SigningKey(cCtx *cli.Context) (*ecdsa.PrivateKey, error) {
	if raw := cCtx.String(KeyFlag.Name); raw != "" {
		return cryptoutils.ParsePrivateKeyHex(raw)
	}
	if path := cCtx.String(KeyFileFlag.Name); path != "" {
		return cryptoutils.LoadPrivateKeyFile(path)
	}
	return nil, nil
}

// ServerAddr returns the registry base URL from --server-addr, or the first
// server advertised by the --server-srv DNS record.
func ServerAddr(cCtx *cli.Context) (string, error) {
	if srvName := cCtx.String(ServerSRVFlag.Name); srvName != "" {
		resolver := clients.NewSRVResolver(cCtx.String(NameserverFlag.Name))
		servers, err := resolver.Resolve(cCtx.Context, srvName)
		if err != nil {
			return "", err
		}
		return servers[0], nil
	}

	addr := cCtx.String(ServerAddrFlag.Name)
	if addr == "" {
		return "", errors.New("either --server-addr or --server-srv is required")
	}
	return clients.ServerAddrFromURL(addr)
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to report not-ready before shutting down",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}
var MaxBodyBytesFlag = &cli.Int64Flag{
	Name:  "max-body-bytes",
	Value: api.DefaultMaxBodyBytes,
	Usage: "maximum accepted request body size",
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	Usage:   "registry server base URL",
	EnvVars: []string{"REGISTRY_SERVER_ADDR"},
}
var ServerSRVFlag = &cli.StringFlag{
	Name:  "server-srv",
	Usage: "discover the registry server through this DNS SRV record, e.g. _registry._tcp.example.com",
}
var NameserverFlag = &cli.StringFlag{
	Name:  "nameserver",
	Usage: "DNS server (host:port) for --server-srv, defaults to /etc/resolv.conf",
}
var KeyFlag = &cli.StringFlag{
	Name:    "key",
	Usage:   "hex-encoded secp256k1 private key signing state-changing requests",
	EnvVars: []string{"REGISTRY_KEY"},
}
var KeyFileFlag = &cli.StringFlag{
	Name:  "key-file",
	Usage: "file holding a hex-encoded secp256k1 private key",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
	MaxBodyBytesFlag,
}

var ClientFlags = []cli.Flag{
	ServerAddrFlag,
	ServerSRVFlag,
	NameserverFlag,
	KeyFlag,
	KeyFileFlag,
	LogJsonFlag,
	LogDebugFlag,
}
