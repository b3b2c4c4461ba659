package config

import (
	"flag"
	"os"

	"github.com/PromptVision-AI/promptvision-app/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string    HTTP bind address (e.g. ":8000")
//	-g string    gRPC health bind address
//	-d string    database DSN
//	-D string    database dialect: postgres | sqlite
//	-auth string auth provider: gotrue | local
//	-s string    JWT secret (local provider)
//	-t duration  access token lifetime (local provider)
//	-r duration  refresh token lifetime (local provider)
//	-b string    media bucket
//	-e string    media endpoint
//	-ai string   AI pipeline URL
//	-l string    log level
//
// Only these flags are looked at; see flagx.FilterArgs.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-D", "-auth", "-s", "-t", "-r", "-b", "-e", "-ai", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to serve HTTP on")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port to serve gRPC health on")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DatabaseDialect, "D", config.DatabaseDialect, "database dialect (postgres, sqlite)")
	fs.StringVar(&config.AuthProvider, "auth", config.AuthProvider, "auth provider (gotrue, local)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token lifetime")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token lifetime")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "media bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "media endpoint")
	fs.StringVar(&config.PipelineURL, "ai", config.PipelineURL, "AI pipeline URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
