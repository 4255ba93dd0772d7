// Package config parses and validates pktizr's command-line configuration.
package config

import (
	"errors"

	"github.com/spf13/pflag"
)

// Config holds the parsed CLI configuration, mirroring the flag table in
// original_source/src/pktizr.c's getopt_long table.
type Config struct {
	TargetsSpec string
	Script      string
	PortsSpec   string
	Rate        uint64
	Seed        uint64
	SeedSet     bool
	WaitSeconds uint64
	Count       uint64
	LocalAddr   string
	GatewayAddr string
	Quiet       bool

	MetricsAddr string
	Verbose     bool
	Version     bool
	Help        bool

	flags *pflag.FlagSet
}

// Parse builds a Config from argv-style arguments (excluding argv[0]).
func Parse(args []string) (*Config, error) {
	cfg := &Config{
		PortsSpec:   "1",
		Rate:        100,
		WaitSeconds: 5,
		Count:       1,
	}

	fs := pflag.NewFlagSet("pktizr", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Script, "script", "S", "", "Load and run the given script")
	fs.StringVarP(&cfg.PortsSpec, "ports", "p", cfg.PortsSpec, "Use the specified port ranges")
	fs.Uint64VarP(&cfg.Rate, "rate", "r", cfg.Rate, "Send packets no faster than the specified rate")
	fs.Uint64VarP(&cfg.Seed, "seed", "s", 0, "Use the given number as seed value")
	fs.Uint64VarP(&cfg.WaitSeconds, "wait", "w", cfg.WaitSeconds, "Wait the given amount of seconds after the scan is complete")
	fs.Uint64VarP(&cfg.Count, "count", "c", cfg.Count, "Send the given amount of duplicate packets")
	fs.StringVarP(&cfg.LocalAddr, "local-addr", "l", "", "Override source IP")
	fs.StringVarP(&cfg.GatewayAddr, "gateway-addr", "g", "", "Override gateway IP")
	fs.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Don't show the status line")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on the given address")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&cfg.Version, "version", false, "Print version information and exit")
	fs.BoolVarP(&cfg.Help, "help", "h", false, "Show this help")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.SeedSet = fs.Changed("seed")
	if fs.NArg() > 0 {
		cfg.TargetsSpec = fs.Arg(0)
	}
	cfg.flags = fs

	return cfg, nil
}

// Usage returns the flag usage text for --help output.
func (c *Config) Usage() string {
	return c.flags.FlagUsages()
}

// Validate checks that the parsed configuration is complete enough to
// start a scan. Help and Version short-circuit validation since the
// process exits before any of the other fields are used.
func (c *Config) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if c.TargetsSpec == "" {
		return errors.New("config: a target range is required")
	}
	if c.Script == "" {
		return errors.New("config: --script is required")
	}
	if c.Count == 0 {
		return errors.New("config: --count must be at least 1")
	}
	return nil
}
