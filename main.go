package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gofrs/flock"

	"tally/engine"
	"tally/engine/config"
	"tally/engine/db"
	"tally/www"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var opts struct {
	configPath string
	logger     struct {
		level string
	}
}

// tickLock must stay referenced for the life of the process so the
// advisory lock is not released early.
var tickLock *flock.Flock

func main() {
	// parse command line options
	flag.StringVar(&opts.configPath, "config", "./config/tally.conf", "Path to the configuration file")
	flag.StringVar(&opts.logger.level, "log-level", "debug", "Set the log level")
	flag.Parse()

	logLevel, ok := logLevels[opts.logger.level]
	if !ok {
		log.Fatalf("Invalid log level: %s", opts.logger.level)
	}
	var handler slog.Handler
	handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// load and validate the config
	conf := config.ConfigSettings{}
	if err := conf.SetConfig(opts.configPath); err != nil {
		log.Fatalln("Failed to load config:", err)
	}

	db.Connect(conf.RequiredSettings.DBConnectURL)

	if err := db.SeedSettings(db.Settings{
		PointsPerTick: conf.MiscSettings.PointsPerTick,
		TickInterval:  conf.MiscSettings.TickInterval,
	}); err != nil {
		log.Fatalln("Failed to seed settings:", err)
	}

	le := engine.NewEngine(&conf)

	// only one worker process per host runs the tick scheduler
	lock, locked, err := engine.AcquireTickLock(conf.MiscSettings.TickLockFile)
	if err != nil {
		log.Fatalln("Failed to acquire tick lock:", err)
	}
	if locked {
		tickLock = lock
		go le.Start()
	} else {
		slog.Info("another worker holds the tick lock, skipping scheduler", "lockfile", conf.MiscSettings.TickLockFile)
	}

	// start web server
	router := www.Router{Config: &conf, Engine: le}
	router.Start()
}
