package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netforge-labs/pktizr/internal/arp"
	"github.com/netforge-labs/pktizr/internal/config"
	"github.com/netforge-labs/pktizr/internal/metrics"
	"github.com/netforge-labs/pktizr/internal/netutil"
	"github.com/netforge-labs/pktizr/internal/queue"
	"github.com/netforge-labs/pktizr/internal/ranges"
	"github.com/netforge-labs/pktizr/internal/rawdev"
	"github.com/netforge-labs/pktizr/internal/scan"
	"github.com/netforge-labs/pktizr/internal/script"
	"github.com/netforge-labs/pktizr/internal/status"
)

// Set by LDFLAGS.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const snaplen = 65535

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(argv []string) error {
	cfg, err := config.Parse(argv)
	if err != nil {
		return err
	}

	if cfg.Help {
		fmt.Fprintln(os.Stdout, "Usage: pktizr <targets> [options]")
		fmt.Fprintln(os.Stdout, cfg.Usage())
		return nil
	}
	if cfg.Version {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	log := newLogger(cfg.Verbose)

	if cfg.MetricsAddr != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go serveMetrics(log, cfg.MetricsAddr)
	}

	args, err := buildArgs(log, cfg)
	if err != nil {
		log.Error("pktizr: startup failed", "error", err)
		return err
	}
	defer args.Device.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	host := script.NoOp{}
	line := status.New(os.Stderr, cfg.Quiet)
	pipeline := scan.New(log, args, host, clockwork.NewRealClock(), line)

	return pipeline.Run(ctx)
}

func buildArgs(log *slog.Logger, cfg *config.Config) (*scan.Args, error) {
	targets, err := ranges.ParseIPv4(cfg.TargetsSpec)
	if err != nil {
		return nil, fmt.Errorf("pktizr: invalid target range: %w", err)
	}
	ports, err := ranges.ParsePorts(cfg.PortsSpec)
	if err != nil {
		return nil, fmt.Errorf("pktizr: invalid port range: %w", err)
	}

	iface, localIP, gatewayIP, err := resolveAddresses(cfg)
	if err != nil {
		return nil, err
	}

	log.Info("pktizr: resolved route",
		"interface", iface.Name, "localAddr", localIP, "gatewayAddr", gatewayIP)

	localMAC := iface.HardwareAddr
	if len(localMAC) == 0 {
		return nil, fmt.Errorf("pktizr: interface %s has no hardware address", iface.Name)
	}

	dev, err := rawdev.OpenLive(iface.Name, snaplen, true, 0)
	if err != nil {
		return nil, fmt.Errorf("pktizr: open device: %w", err)
	}

	gatewayMAC, err := arp.Resolve(dev, localMAC, localIP, gatewayIP, arp.DefaultTimeout)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("pktizr: resolve gateway mac: %w", err)
	}

	seed := cfg.Seed
	if !cfg.SeedSet {
		seed, err = randomSeed()
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("pktizr: read entropy: %w", err)
		}
	}
	log.Debug("pktizr: seed", "value", seed)

	args := &scan.Args{
		Targets:     targets,
		Ports:       ports,
		Rate:        cfg.Rate,
		Seed:        seed,
		Wait:        time.Duration(cfg.WaitSeconds) * time.Second,
		Count:       cfg.Count,
		Quiet:       cfg.Quiet,
		LocalMAC:    localMAC,
		LocalAddr:   localIP,
		GatewayMAC:  gatewayMAC,
		GatewayAddr: gatewayIP,
		Device:      dev,
		Queue:       queue.New[script.Item](),
	}
	return args, nil
}

func resolveAddresses(cfg *config.Config) (*net.Interface, net.IP, net.IP, error) {
	var (
		iface     *net.Interface
		ifaceName string
		localIP   net.IP
		gatewayIP net.IP
		err       error
	)

	if cfg.GatewayAddr != "" {
		gatewayIP = net.ParseIP(cfg.GatewayAddr).To4()
		if gatewayIP == nil {
			return nil, nil, nil, fmt.Errorf("pktizr: invalid --gateway-addr %q", cfg.GatewayAddr)
		}
	} else {
		gatewayIP, ifaceName, err = netutil.DefaultGateway()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pktizr: resolve default gateway: %w", err)
		}
	}

	if ifaceName != "" {
		iface, localIP, err = netutil.ResolveInterface(ifaceName)
	} else {
		iface, err = netutil.DefaultInterface()
		if err == nil {
			_, localIP, err = netutil.ResolveInterface(iface.Name)
		}
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pktizr: resolve outbound interface: %w", err)
	}

	if cfg.LocalAddr != "" {
		parsed := net.ParseIP(cfg.LocalAddr).To4()
		if parsed == nil {
			return nil, nil, nil, fmt.Errorf("pktizr: invalid --local-addr %q", cfg.LocalAddr)
		}
		localIP = parsed
	}

	return iface, localIP, gatewayIP, nil
}

func randomSeed() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func serveMetrics(log *slog.Logger, addr string) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("pktizr: metrics listener failed", "error", err)
		os.Exit(1)
	}
	log.Info("pktizr: metrics server listening", "address", listener.Addr().String())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.Serve(listener, mux); err != nil {
		log.Error("pktizr: metrics server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: level,
	}))
}
