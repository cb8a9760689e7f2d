package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/certificate-registry/cmd/flags"
	"github.com/ruteri/certificate-registry/common"
	"github.com/ruteri/certificate-registry/cryptoutils"
	"github.com/ruteri/certificate-registry/httpserver"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/metrics"
	"github.com/ruteri/certificate-registry/registry"
	"github.com/ruteri/certificate-registry/storage"
	"github.com/urfave/cli/v2"
)

var serverFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:    "owner-address",
		Usage:   "registry owner address (0x-prefixed hex)",
		EnvVars: []string{"REGISTRY_OWNER_ADDRESS"},
	},
	&cli.StringFlag{
		Name:    "owner-key",
		Usage:   "hex-encoded owner private key, the owner address is derived from it",
		EnvVars: []string{"REGISTRY_OWNER_KEY"},
	},
	&cli.StringSliceFlag{
		Name:  "archive-uri",
		Usage: "storage backend URI for certificate documents (repeatable), e.g. file:///var/lib/certificate-registry",
	},
	&cli.IntFlag{
		Name:  "archive-buffer",
		Value: 256,
		Usage: "event buffer of the archive mirror",
	},
	flags.LogServiceFlagFn(common.PackageName),
}

// ownerFrom returns the owner principal from either an address or a private key.
func ownerFrom(address, key string) (interfaces.Principal, error) {
	switch {
	case address != "" && key != "":
		return interfaces.Principal{}, errors.New("--owner-address and --owner-key are mutually exclusive")
	case address != "":
		return interfaces.ParsePrincipal(address)
	case key != "":
		privateKey, err := cryptoutils.ParsePrivateKeyHex(key)
		if err != nil {
			return interfaces.Principal{}, err
		}
		return cryptoutils.AddressOf(privateKey), nil
	default:
		return interfaces.Principal{}, errors.New("one of --owner-address or --owner-key is required")
	}
}

// setupArchive creates the document archive and its mirror. It returns nils
// when no archive is configured.
func setupArchive(cCtx *cli.Context, reg *registry.Registry, logger *slog.Logger) (interfaces.StorageBackend, *storage.ArchiveMirror, error) {
	uris := cCtx.StringSlice("archive-uri")
	if len(uris) == 0 {
		logger.Warn("No archive configured, certificate documents will not be stored")
		return nil, nil, nil
	}

	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		locations = append(locations, interfaces.StorageBackendLocation(uri))
	}

	factory := storage.NewStorageBackendFactory(logger)
	backend, err := factory.CreateMultiBackend(locations)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create archive: %w", err)
	}
	logger.Info("Archive configured", "location", backend.LocationURI())

	mirror := storage.NewArchiveMirror(reg, reg, backend, logger,
		storage.WithSubscriptionBuffer(cCtx.Int("archive-buffer")))
	return backend, mirror, nil
}

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the certificate registry API",
		Flags: append(serverFlags, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			owner, err := ownerFrom(cCtx.String("owner-address"), cCtx.String("owner-key"))
			if err != nil {
				logger.Error("Invalid owner configuration", "err", err)
				return err
			}

			reg := registry.New(owner, registry.WithLogger(logger))
			logger.Info("Registry created", "owner", owner.Hex())

			m := metrics.New(common.PackageName)
			m.RegisterCertificateCount(reg.CertificateCount)

			archive, mirror, err := setupArchive(cCtx, reg, logger)
			if err != nil {
				logger.Error("Failed to set up archive", "err", err)
				return err
			}

			ctx, cancel := context.WithCancel(cCtx.Context)
			defer cancel()

			mirrorDone := make(chan struct{})
			if mirror != nil {
				m.RegisterArchive(mirror.Archived, mirror.Failed)
				go func() {
					defer close(mirrorDone)
					if err := mirror.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("Archive mirror stopped", "err", err)
					}
				}()
			} else {
				close(mirrorDone)
			}

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"))
			handler := httpserver.NewHandler(reg, reg, archive, m, cfg)
			server, err := httpserver.New(cfg, handler, m)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			cancel()
			<-mirrorDone
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
