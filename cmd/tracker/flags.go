package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/fitlife/tracker/internal/serialmux"
)

// options are the command line settings. Every string flag also reads a
// FITLIFE_* environment variable for its default, which lets a .env file
// configure the service.
type options struct {
	Listen         string
	DB             string
	Port           string
	Baud           int
	Dev            bool
	DisableSensors bool
	Config         string
	MongoURI       string
	MongoDB        string
	RedisURL       string
	AutosaveCron   string
	Seed           bool
	Timezone       string
	ProbeTimeout   time.Duration
	Version        bool

	// Args holds what follows the flags, e.g. "migrate up".
	Args []string
}

func parseFlags(args []string, getenv func(string) string, stderr io.Writer) (*options, error) {
	envOr := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	o := &options{}
	fs := flag.NewFlagSet("tracker", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.Listen, "listen", envOr("FITLIFE_LISTEN", ":8080"), "Listen address")
	fs.StringVar(&o.DB, "db", envOr("FITLIFE_DB", "activities.db"), "SQLite database path")
	fs.StringVar(&o.Port, "port", envOr("FITLIFE_PORT", "/dev/ttyUSB0"), "Sensor board serial port (ignored in dev mode)")
	fs.IntVar(&o.Baud, "baud", serialmux.DefaultBaudRate, "Sensor board baud rate")
	fs.BoolVar(&o.Dev, "dev", false, "Use a simulated sensor board")
	fs.BoolVar(&o.DisableSensors, "disable-sensors", false, "Run without a sensor board")
	fs.StringVar(&o.Config, "config", envOr("FITLIFE_CONFIG", ""), "Tracking config JSON file (built-in defaults when empty)")
	fs.StringVar(&o.MongoURI, "mongo-uri", envOr("FITLIFE_MONGO_URI", ""), "Store activities in MongoDB instead of SQLite")
	fs.StringVar(&o.MongoDB, "mongo-db", envOr("FITLIFE_MONGO_DB", "fitlife"), "MongoDB database name")
	fs.StringVar(&o.RedisURL, "redis-url", envOr("FITLIFE_REDIS_URL", ""), "Publish the tracking notification to Redis")
	fs.StringVar(&o.AutosaveCron, "autosave-cron", envOr("FITLIFE_AUTOSAVE_CRON", ""), "Cron schedule that saves the current session")
	fs.BoolVar(&o.Seed, "seed", false, "Load a sample week when the activity store is empty")
	fs.StringVar(&o.Timezone, "timezone", envOr("FITLIFE_TIMEZONE", "UTC"), "Timezone used for activity day labels")
	fs.DurationVar(&o.ProbeTimeout, "probe-timeout", 3*time.Second, "How long to wait for the sensor board to report its capabilities")
	fs.BoolVar(&o.Version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.Listen == "" {
		return nil, fmt.Errorf("listen address is required")
	}
	if o.Dev && o.DisableSensors {
		return nil, fmt.Errorf("-dev and -disable-sensors are mutually exclusive")
	}
	if !o.Dev && !o.DisableSensors && o.Port == "" {
		return nil, fmt.Errorf("serial port is required")
	}
	o.Args = fs.Args()
	return o, nil
}
