// Command gridline-server runs the broker: the streaming engine plus the
// TCP, TLS, QUIC and HTTP transports in front of it.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/clients"
	"github.com/ericlarwa/gridline/internal/config"
	"github.com/ericlarwa/gridline/internal/dispatch"
	"github.com/ericlarwa/gridline/internal/metrics"
	"github.com/ericlarwa/gridline/internal/streaming"
	"github.com/ericlarwa/gridline/internal/transport/httpapi"
	quictransport "github.com/ericlarwa/gridline/internal/transport/quic"
	"github.com/ericlarwa/gridline/internal/transport/tcp"

	quicgo "github.com/quic-go/quic-go"
)

func main() {
	var configPath string
	var dev bool

	root := &cobra.Command{
		Use:   "gridline-server",
		Short: "Run the gridline broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, dev)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.Flags().BoolVar(&dev, "dev", false, "use a development logger")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, dev bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(dev)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	engine, err := streaming.Open(cfg.DataRoot, limitsFromConfig(cfg.Segment), log)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer engine.Close()

	users, err := auth.Open(cfg.DataRoot, auth.BootstrapConfig{
		RootUsername: cfg.Auth.RootUsername,
		RootPassword: cfg.Auth.RootPassword,
	}, log)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}

	perm := auth.NewPermissioner(users, !cfg.Auth.Enabled)
	tokens := auth.NewTokenIssuer(jwtSecret(cfg.Auth.JWTSecret), cfg.Auth.JWTTTL)
	cm := clients.NewManager()
	m := metrics.New()
	d := dispatch.New(engine, users, perm, tokens, cm, m, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.RunRetention(gctx, cfg.Segment.RetentionInterval)
	})

	tcpServer := tcp.NewServer(d, cm, !cfg.Auth.Enabled, log)
	if cfg.Server.TCPAddress != "" {
		ln, err := net.Listen("tcp", cfg.Server.TCPAddress)
		if err != nil {
			return fmt.Errorf("listen tcp: %w", err)
		}
		log.Info("tcp transport listening", zap.String("addr", cfg.Server.TCPAddress))
		g.Go(func() error { return tcpServer.Serve(gctx, ln) })
	}

	if cfg.Server.TLSAddress != "" && cfg.Server.TLSCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("load tls cert: %w", err)
		}
		ln, err := net.Listen("tcp", cfg.Server.TLSAddress)
		if err != nil {
			return fmt.Errorf("listen tls: %w", err)
		}
		log.Info("tls transport listening", zap.String("addr", cfg.Server.TLSAddress))
		g.Go(func() error {
			return tcpServer.ServeTLS(gctx, ln, &tls.Config{Certificates: []tls.Certificate{cert}})
		})
	}

	if cfg.Server.QUICAddress != "" && cfg.Server.TLSCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("load tls cert for quic: %w", err)
		}
		ln, err := quictransport.Listen(cfg.Server.QUICAddress, &tls.Config{Certificates: []tls.Certificate{cert}}, &quicgo.Config{})
		if err != nil {
			return fmt.Errorf("listen quic: %w", err)
		}
		log.Info("quic transport listening", zap.String("addr", cfg.Server.QUICAddress))
		quicServer := quictransport.NewServer(d, cm, !cfg.Auth.Enabled, log)
		g.Go(func() error { return quicServer.Serve(gctx, ln) })
	}

	httpServer := httpapi.NewServer(d, cm, tokens, !cfg.Auth.Enabled, log)
	if cfg.Server.HTTPAddress != "" {
		srv := &http.Server{Addr: cfg.Server.HTTPAddress, Handler: httpServer}
		log.Info("http transport listening", zap.String("addr", cfg.Server.HTTPAddress))
		g.Go(func() error { return serveUntilClosed(srv) })
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	}

	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: mux}
		log.Info("metrics listening", zap.String("addr", cfg.Server.MetricsAddress))
		g.Go(func() error { return serveUntilClosed(srv) })
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

func serveUntilClosed(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func limitsFromConfig(s config.SegmentConfig) streaming.Limits {
	return streaming.Limits{
		SegmentSizeBytes:  s.SizeBytes,
		IndexStride:       s.IndexStrideBytes,
		MaxPartitionBytes: s.MaxPartitionBytes,
		MessageExpiry:     s.MessageExpiry,
		FlushEveryN:       s.FlushEveryN,
		FlushEvery:        s.FlushEvery,
		DurableAck:        s.DurableAck,
		ClosedSegmentLRU:  s.ClosedSegmentLRU,
	}
}

func jwtSecret(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	return []byte("gridline-dev-secret")
}
