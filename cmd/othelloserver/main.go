// Command othelloserver runs the Othello search REST API server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/othello/pkg/api"
	"github.com/yourusername/othello/pkg/engine"
)

const version = "0.1.0"

func main() {
	def := api.DefaultConfig()
	host := flag.String("host", def.Host, "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", def.Port, "Port to listen on")
	readTimeout := flag.Duration("read-timeout", def.ReadTimeout, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", def.WriteTimeout, "HTTP write timeout")
	threads := flag.Int("threads", def.MaxSearchThreads, "Search goroutines shared by all requests")
	maxDepth := flag.Int("max-depth", def.MaxDepth, "Deepest search a request may ask for")
	cacheSize := flag.Int("cache", engine.DefaultCacheCapacity, "Transposition cache entries (-1 = disabled)")
	shared := flag.Int("shared", engine.DefaultSharedDepth, "Plies expanded into parallel jobs")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	jsonLogs := flag.Bool("json-logs", false, "Write JSON logs instead of console output")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Othello API Server v%s\n", version)
		os.Exit(0)
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if !*jsonLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	cfg := engine.DefaultConfig()
	cfg.CacheCapacity = *cacheSize
	cfg.SharedDepth = *shared
	if *threads > 0 {
		cfg.Workers = *threads
	}

	eng, err := engine.NewEngine(engine.EngineOptions{Config: cfg, Logger: &log.Logger})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create engine")
	}
	log.Info().
		Int("cache", cfg.CacheCapacity).
		Int("shared_depth", cfg.SharedDepth).
		Msg("engine ready")

	config := def
	config.Host = *host
	config.Port = *port
	config.ReadTimeout = *readTimeout
	config.WriteTimeout = *writeTimeout
	config.MaxSearchThreads = *threads
	config.MaxDepth = *maxDepth

	server := api.NewServer(eng, config, version, log.Logger)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
