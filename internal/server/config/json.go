package config

import (
	"encoding/json"
	"os"

	"github.com/PromptVision-AI/promptvision-app/internal/flagx"
	"github.com/PromptVision-AI/promptvision-app/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "90s" and integer nanoseconds are accepted.
// Absent keys keep the value from the previous layer.
type JsonConfig struct {
	HTTPAddr  string `json:"http_addr"`
	GRPCAddr  string `json:"grpc_health_addr"`
	LogLevel  string `json:"log_level"`
	StaticDir string `json:"static_dir"`

	DatabaseDialect string `json:"database_dialect"`
	DatabaseDSN     string `json:"database_dsn"`
	AutoMigrate     *bool  `json:"database_auto_migrate"`

	SessionCookieName   string         `json:"session_cookie_name"`
	SessionTTL          timex.Duration `json:"session_ttl"`
	SessionCookieSecure *bool          `json:"session_cookie_secure"`

	AuthProvider string `json:"auth_provider"`
	GoTrueURL    string `json:"gotrue_url"`
	GoTrueAPIKey string `json:"gotrue_api_key"`

	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`

	S3RootUser      string `json:"s3_root_user"`
	S3RootPassword  string `json:"s3_root_password"`
	S3Bucket        string `json:"s3_bucket"`
	S3Region        string `json:"s3_region"`
	S3BaseEndpoint  string `json:"s3_base_endpoint"`
	S3PublicURL     string `json:"s3_public_url"`
	MediaRootFolder string `json:"media_root_folder"`

	PipelineURL     string         `json:"pipeline_url"`
	PipelineTimeout timex.Duration `json:"pipeline_timeout"`
}

// parseJson loads the file named by -c/-config, if any, and copies every
// non-empty value into config. A missing or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.StaticDir, c.StaticDir)

	setString(&config.DatabaseDialect, c.DatabaseDialect)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.AutoMigrate != nil {
		config.AutoMigrate = *c.AutoMigrate
	}

	setString(&config.SessionCookieName, c.SessionCookieName)
	if c.SessionTTL.Duration != 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.SessionCookieSecure != nil {
		config.SessionCookieSecure = *c.SessionCookieSecure
	}

	setString(&config.AuthProvider, c.AuthProvider)
	setString(&config.GoTrueURL, c.GoTrueURL)
	setString(&config.GoTrueAPIKey, c.GoTrueAPIKey)

	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	setString(&config.MediaRootFolder, c.MediaRootFolder)

	setString(&config.PipelineURL, c.PipelineURL)
	if c.PipelineTimeout.Duration != 0 {
		config.PipelineTimeout = c.PipelineTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
