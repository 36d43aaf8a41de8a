package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the server API
//	-t string   tenant subdomain to start with
//	-d string   path of the local session database
//	-i int      online check interval in seconds
//
// Only the flags above are looked at; flagx.FilterArgs drops the rest.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server API")
	fs.StringVar(&cfg.Tenant, "t", cfg.Tenant, "tenant subdomain")
	fs.StringVar(&cfg.SessionDB, "d", cfg.SessionDB, "session database file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
