package config

import (
	"flag"
	"os"
	"time"

	"github.com/ropbridge/ropbridge/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-e string   SQL Server DSN for the Logo ERP database
//	-f string   Logo firm number
//	-n string   Logo fiscal period number
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, hours
//	-l string   Logo REST base URL
//	-q string   AMQP URL for security alerts
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-e", "-f", "-n", "-s", "-t", "-r", "-l", "-q"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ERPDatabaseDSN, "e", config.ERPDatabaseDSN, "ERP database DSN")
	fs.StringVar(&config.FirmNo, "f", config.FirmNo, "Logo firm number")
	fs.StringVar(&config.PeriodNo, "n", config.PeriodNo, "Logo fiscal period number")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()), "refresh_token_validity_duration (in hours)")

	fs.StringVar(&config.LogoBaseURL, "l", config.LogoBaseURL, "Logo REST base URL")
	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP URL for security alerts")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Hour
}
