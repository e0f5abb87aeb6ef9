package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

type Config struct {
	CockroachURL      string        `ff:"long: cockroach-url, default: postgresql://root@127.0.0.1:26257/defaultdb?sslmode=disable, usage: URL for the CockroachDB database"`
	Port              uint32        `ff:"long: port, short: p, default: 4444, usage: Port for the HTTP server"`
	NATSURL           string        `ff:"long: nats-url, usage: NATS URL for realtime fan-out across instances (in-process broker when empty)"`
	TokenKey          string        `ff:"long: token-key, default: supersecretkeyyoushouldnotcommit, usage: 32 bytes key to verify bearer tokens"`
	WebOrigin         string        `ff:"long: web-origin, default: http://localhost:5173, usage: Origin allowed to open realtime sockets"`
	VAPIDPublicKey    string        `ff:"long: vapid-public-key, usage: VAPID public key for web push"`
	VAPIDPrivateKey   string        `ff:"long: vapid-private-key, usage: VAPID private key for web push"`
	VAPIDSubscriber   string        `ff:"long: vapid-subscriber, usage: Contact email or URL sent to push services"`
	BackgroundTimeout time.Duration `ff:"long: background-timeout, default: 15s, usage: Timeout for background jobs like web push"`
	ShutdownTimeout   time.Duration `ff:"long: shutdown-timeout, default: 10s, usage: Grace period to drain HTTP connections on shutdown"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg, err := Parse(os.Args[1:])
	if errors.Is(err, ff.ErrHelp) {
		var c Config
		fmt.Println(ffhelp.Flags(ff.NewFlagSetFrom("batimarket", &c)))
		os.Exit(0)
	}

	return cfg, err
}

// Parse reads flags from args and BATIMARKET_ prefixed env vars.
func Parse(args []string) (Config, error) {
	var cfg Config
	fs := ff.NewFlagSetFrom("batimarket", &cfg)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("BATIMARKET")); err != nil {
		return cfg, err
	}

	if n := len(cfg.TokenKey); n != 32 {
		return cfg, fmt.Errorf("token key must be 32 bytes long; got %d", n)
	}

	return cfg, nil
}
