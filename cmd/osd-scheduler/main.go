package main

import (
	_ "embed"
	"flag"
	"os"
	"strings"
	"time"

	"osdsched/pkg/log"
	"osdsched/pkg/profile"
	"osdsched/pkg/registry"
	"osdsched/pkg/server"
)

const (
	defaultStaleAfter     = 2 * time.Minute
	defaultReportInterval = 30 * time.Second
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	addr := flag.String("addr", ":8080", "Scheduler listen address")
	staleAfter := flag.Duration("stale-after", defaultStaleAfter, "Mark OSDs degraded after this long without an announcement (0 disables)")
	reportInterval := flag.Duration("report-interval", defaultReportInterval, "Interval between free resource reports")
	profiles := flag.String("profiles", "", "Comma-separated list of profile files to register at startup (exempt from the stale check until an agent announces them)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	reg := registry.New(*staleAfter, *reportInterval)

	if *profiles != "" {
		for _, path := range strings.Split(*profiles, ",") {
			path = strings.TrimSpace(path)
			desc, err := profile.Load(path)
			if err != nil {
				log.Fatal().Err(err).Str("profile", path).Msg("Failed to load profile")
			}
			reg.Register(desc)
		}
	}

	scheduler := server.NewSchedulerServer(reg, strings.TrimSpace(Version))
	if err := scheduler.Start(*addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	os.Exit(0)
}
