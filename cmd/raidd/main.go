package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	raid "github.com/WelcomerTeam/Raid-Daemon"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path of the configuration file")
	logLevel := flag.String("level", "info", "log level")
	logFile := flag.String("log", "logs/raidd.log", "rotated log file, empty to only log to the console")
	flag.Parse()

	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writer io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Stamp}

	if *logFile != "" {
		writer = zerolog.MultiLevelWriter(writer, &lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()

	config, err := raid.NewConfigProviderFromPath(*configPath).GetConfig(context.Background())
	if err != nil {
		logger.Panic().Err(err).Msg("Failed to load configuration")
	}

	producerProvider := raid.ProducerProvider(raid.NewMemoryProducer())
	if config.Producer.Type != "" {
		producerProvider = raid.NewMQProducerProvider(config.Producer.Type, config.Producer.Channel, config.Producer.Args)
	} else {
		logger.Warn().Msg("No producer configured, results are only kept in memory")
	}

	coordinator := raid.NewCoordinator(
		logger,
		raid.NewStaticConfigProvider(config),
		nil,
		producerProvider,
		nil,
	).WithPrometheusAnalytics(prometheus.NewPedanticRegistry())

	ctx, cancel := context.WithCancel(context.Background())

	if err := coordinator.Start(ctx); err != nil {
		logger.Panic().Err(err).Msg("Failed to start raid daemon")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sig

	coordinator.Stop(ctx)

	cancel()
}
