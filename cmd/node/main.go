// Command node starts one Chord ring member, optionally joining an
// existing ring through a bootstrap peer, and serves the spec's HTTP
// RPC surface until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/retorded/chordring/internal/bootstrap"
	"github.com/retorded/chordring/internal/config"
	"github.com/retorded/chordring/internal/logger"
	zapfactory "github.com/retorded/chordring/internal/logger/zap"
	"github.com/retorded/chordring/internal/ring"
	"github.com/retorded/chordring/internal/ringid"
	"github.com/retorded/chordring/internal/telemetry"
	"github.com/retorded/chordring/internal/transport"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to an optional YAML config file")
		ip            = flag.String("ip", "0.0.0.0", "address to bind the HTTP server to")
		port          = flag.String("port", "5000", "port to bind the HTTP server to")
		advertiseAddr = flag.String("address", "", "ip:port advertised to peers (default: ip:port)")
		m             = flag.Int("m", 0, "identifier bit width (0 keeps the config/default value)")
		successors    = flag.Int("successors", 0, "successor list length r (0 keeps the config/default value)")
		joinAddr      = flag.String("join", "", "address of an existing ring member to join through")
		bootstrapMode = flag.String("bootstrap-mode", "", "bootstrap discovery mode: static or route53")
		staticPeers   = flag.String("bootstrap-peers", "", "comma-separated static bootstrap peers")
		logLevel      = flag.String("log-level", "", "debug, info, warn, or error")
		logEncoding   = flag.String("log-encoding", "", "console or json")
		logFile       = flag.String("log-file", "", "log file path (empty logs to stdout)")
		tracing       = flag.Bool("tracing", false, "enable OpenTelemetry tracing of find_successor hops")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	applyFlagOverrides(&cfg, flagOverrides{
		m: *m, successors: *successors,
		bootstrapMode: *bootstrapMode, staticPeers: *staticPeers,
		logLevel: *logLevel, logEncoding: *logEncoding, logFile: *logFile,
		tracing: *tracing,
	})

	var lgr logger.Logger
	zapLog, err := zapfactory.New(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()
	lgr = zapfactory.NewAdapter(zapLog).Named("node")
	cfg.Log(lgr)

	selfAddr := *advertiseAddr
	if selfAddr == "" {
		selfAddr = net.JoinHostPort(*ip, *port)
	}

	shutdownTracer, err := telemetry.Init(context.Background(), cfg.Tracing, ringid.Hash(selfAddr, cfg.Ring.M), selfAddr)
	if err != nil {
		lgr.Error("failed to initialize telemetry", logger.F("err", err))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	client := transport.NewClient(lgr)
	node := ring.New(selfAddr, cfg.Ring.M, cfg.Ring.SuccessorListLen, client, lgr, telemetry.NewHopTracer())
	lgr.Info("node created", logger.F("id", node.ID()), logger.F("address", selfAddr))

	discoverer, err := newDiscoverer(cfg.Bootstrap, lgr)
	if err != nil {
		lgr.Error("failed to initialize bootstrap discovery", logger.F("err", err))
		os.Exit(1)
	}

	if *joinAddr != "" {
		if err := node.Join(*joinAddr); err != nil {
			lgr.Error("failed to join via --join", logger.F("address", *joinAddr), logger.F("err", err))
			os.Exit(1)
		}
	} else if discoverer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		peers, err := discoverer.Discover(ctx)
		cancel()
		if err != nil {
			lgr.Warn("bootstrap discovery failed, starting solo ring", logger.F("err", err))
		}
		joined := false
		for _, peer := range peers {
			if peer == selfAddr {
				continue
			}
			if err := node.Join(peer); err != nil {
				lgr.Warn("join attempt failed, trying next peer", logger.F("peer", peer), logger.F("err", err))
				continue
			}
			lgr.Info("joined ring via bootstrap discovery", logger.F("peer", peer))
			joined = true
			break
		}
		if !joined {
			lgr.Info("no reachable bootstrap peer, starting solo ring")
		}
	} else {
		lgr.Info("no bootstrap configured, starting solo ring")
	}

	stopMaintenance := node.RunMaintenance(context.Background())

	server := transport.NewServer(net.JoinHostPort(*ip, *port), node, client, lgr)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()
	lgr.Info("serving", logger.F("bind", net.JoinHostPort(*ip, *port)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received")
		_ = node.Leave()
		stopMaintenance()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Warn("graceful shutdown failed", logger.F("err", err))
		}
	case err := <-serveErr:
		lgr.Error("server terminated unexpectedly", logger.F("err", err))
		stopMaintenance()
		os.Exit(1)
	}
}

type flagOverrides struct {
	m, successors           int
	bootstrapMode           string
	staticPeers             string
	logLevel, logEncoding   string
	logFile                 string
	tracing                 bool
}

func applyFlagOverrides(cfg *config.Config, o flagOverrides) {
	if o.m != 0 {
		cfg.Ring.M = o.m
	}
	if o.successors != 0 {
		cfg.Ring.SuccessorListLen = o.successors
	}
	if o.bootstrapMode != "" {
		cfg.Bootstrap.Mode = o.bootstrapMode
	}
	if o.staticPeers != "" {
		peers := strings.Split(o.staticPeers, ",")
		for i := range peers {
			peers[i] = strings.TrimSpace(peers[i])
		}
		cfg.Bootstrap.Peers = peers
	}
	if o.logLevel != "" {
		cfg.Logger.Level = o.logLevel
	}
	if o.logEncoding != "" {
		cfg.Logger.Encoding = o.logEncoding
	}
	if o.logFile != "" {
		cfg.Logger.File = o.logFile
	}
	if o.tracing {
		cfg.Tracing.Enabled = true
	}
}

func newDiscoverer(cfg config.BootstrapConfig, lgr logger.Logger) (bootstrap.Discoverer, error) {
	switch cfg.Mode {
	case "", "static":
		if len(cfg.Peers) == 0 {
			return nil, nil
		}
		return bootstrap.NewStatic(cfg.Peers), nil
	case "route53":
		return bootstrap.NewRoute53(context.Background(), cfg.HostedZoneID, cfg.DomainSuffix, cfg.Port)
	default:
		return nil, fmt.Errorf("unsupported bootstrap mode %q", cfg.Mode)
	}
}

