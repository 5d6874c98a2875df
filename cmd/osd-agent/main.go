package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"osdsched/pkg/client"
	"osdsched/pkg/log"
	"osdsched/pkg/osd"
	"osdsched/pkg/profile"
)

const (
	defaultInterval       = 30 * time.Second
	defaultRetryMax       = 3
	defaultRetryWaitMax   = 30 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

var (
	errSchedulerScheme = errors.New("scheduler must start with http:// or https://")
	errInterval        = errors.New("interval must be positive")
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger
	_ = log.Logger

	profilePath := flag.String("profile", "profile.yml", "Performance profile of this OSD")
	scheduler := flag.String("scheduler", "http://localhost:8080", "Scheduler URL")
	interval := flag.Duration("interval", defaultInterval, "Interval between announcements")
	retryMax := flag.Int("retry-max", defaultRetryMax, "Maximum number of retries")
	retryWaitMin := flag.Duration("retry-wait-min", 1*time.Second, "Minimum wait time between retries")
	retryWaitMax := flag.Duration("retry-wait-max", defaultRetryWaitMax, "Maximum wait time between retries")
	requestTimeout := flag.Duration("request-timeout", defaultRequestTimeout, "Request timeout")
	watch := flag.Bool("watch", true, "Announce immediately when the profile file changes")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	if err := validateFlags(*scheduler, *interval); err != nil {
		log.Fatal().Err(err).Str("scheduler", *scheduler).Dur("interval", *interval).Msg("Invalid flags")
	}

	// Fail early on an unreadable profile; later reload failures are only logged.
	desc, err := profile.Load(*profilePath)
	if err != nil {
		log.Fatal().Err(err).Str("profile", *profilePath).Msg("Failed to load profile")
	}

	log.Info().
		Str("osd", desc.Identifier()).
		Str("scheduler", *scheduler).
		Dur("interval", *interval).
		Str("version", strings.TrimSpace(Version)).
		Msg("Starting OSD agent")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	schedulerClient := client.New(*scheduler, *retryMax, *retryWaitMin, *retryWaitMax, *requestTimeout)
	announcer := client.NewAnnouncer(schedulerClient, func() (*osd.Description, error) {
		return profile.Load(*profilePath)
	}, *interval)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		announcer.Run(groupCtx)
		return nil
	})
	if *watch {
		group.Go(func() error {
			return profile.Watch(groupCtx, *profilePath, announcer.Notify)
		})
	}

	err = group.Wait()
	stop()
	if err != nil {
		log.Fatal().Err(err).Str("profile", *profilePath).Msg("Profile watcher failed")
	}

	log.Info().Msg("Shutdown complete")
	os.Exit(0)
}

func validateFlags(scheduler string, interval time.Duration) error {
	if !strings.HasPrefix(scheduler, "http://") && !strings.HasPrefix(scheduler, "https://") {
		return errSchedulerScheme
	}
	if interval <= 0 {
		return errInterval
	}
	return nil
}
