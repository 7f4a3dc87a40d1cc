package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/thomiel/adored/internal/audio"
	"codeberg.org/thomiel/adored/internal/config"
	"codeberg.org/thomiel/adored/internal/delivery"
	"codeberg.org/thomiel/adored/internal/fingerprint"
	"codeberg.org/thomiel/adored/internal/logger"
	"codeberg.org/thomiel/adored/internal/pid"
	"codeberg.org/thomiel/adored/internal/probe"
	"codeberg.org/thomiel/adored/internal/queue"
)

var (
	cfg   *config.Config
	track delivery.Track
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&track.Artist, "artist", "", "Artist of the played track")
	flag.StringVar(&track.Title, "title", "", "Title of the played track")
	flag.StringVar(&track.Release, "release", "", "Release (album) of the played track")
	flag.IntVar(&track.TrackNumber, "track-number", 0, "Track number on the release")
	flag.IntVar(&track.Duration, "duration", 0, "Track duration in seconds")
	flag.StringVar(&cfg.Algorithm, "algorithm", cfg.Algorithm, "Fingerprinting algorithm (echoprint or chromaprint)")
	flag.IntVar(&cfg.Channels, "channels", cfg.Channels, "Channel count of the PCM input")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debugging mode")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	flag.Parse()

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

// run wires the pipeline: raw PCM from stdin feeds the probe session, and
// the delivery coordinator reports the fingerprint once the probe window
// completed. Pipe the decoder output in, e.g.
//
//	ffmpeg -i track.flac -f s16le -ar 44100 -ac 2 - | adored -artist ... -title ...
func run(ctx context.Context) error {
	store, err := queue.NewStore(queueConfig(), logger.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	algo, err := fingerprint.New(fingerprint.Config{Algorithm: cfg.Algorithm})
	if err != nil {
		return err
	}

	session := probe.NewSession(algo, probe.Config{
		MinimumDuration: time.Duration(cfg.ProbeSeconds) * time.Second,
	})

	coord, err := delivery.NewCoordinator(delivery.Config{
		ClientUUID: cfg.ClientUUID,
		BaseURL:    cfg.APIHost,
		Port:       cfg.APIPort,
	}, store, session, logger.Default())
	if err != nil {
		return err
	}
	defer coord.Close()

	engineCfg := audio.DefaultConfig()
	engineCfg.Channels = cfg.Channels
	engine, err := audio.NewReaderEngine(os.Stdin, engineCfg)
	if err != nil {
		return err
	}

	engine.AddBufferConsumer(session)
	defer engine.RemoveBufferConsumer(session)

	logger.Debug().
		Str("algorithm", cfg.Algorithm).
		Str("api", cfg.APIHost).
		Str("web", cfg.WebHost).
		Msg("Pipeline initialized")

	coord.NowPlaying(track)

	if err := engine.Run(ctx); err != nil {
		return err
	}

	// End of input: report the track if its probe window completed.
	coord.NowPlaying(track)
	session.StopProbing()

	// Wait for the in-flight submission before reporting status. The
	// deferred Close is then a no-op.
	if err := coord.Close(); err != nil {
		return err
	}

	if coord.ConnectionProblems() {
		logger.Warn().Msg("Connection problems; queued for a later retry")
	}

	return nil
}

func queueConfig() queue.Config {
	qcfg := queue.DefaultConfig()
	if cfg.Database != "" {
		qcfg.DBPath = cfg.Database
	}
	return qcfg
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
