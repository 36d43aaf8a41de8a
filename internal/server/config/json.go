package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/shelfkeeper/internal/flagx"
	"github.com/dmitrijs2005/shelfkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Interval
// fields use timex.Duration, so both "30m" and integer nanoseconds parse.
// Fields left out of the file keep whatever value Config already had.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SigningKeyID                 string         `json:"signing_key_id"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RevocationStore              string         `json:"revocation_store"`
	RedisURL                     string         `json:"redis_url"`
	BaseDomain                   string         `json:"base_domain"`
	TenantURLPattern             string         `json:"tenant_url_pattern"`
	TenantCacheTTL               timex.Duration `json:"tenant_cache_ttl"`
	TenantCacheSize              int            `json:"tenant_cache_size"`
	LoginRateLimitPerMinute      int            `json:"login_rate_limit_per_minute"`
	TrustedProxies               []string       `json:"trusted_proxies"`
	BootstrapAdminPassword       string         `json:"bootstrap_admin_password"`
	LogLevel                     string         `json:"log_level"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the file named by the -c or
// -config flag, or by SHELFKEEPER_CONFIG. Without either nothing is loaded. An unreadable file or
// invalid JSON panics, as the server cannot start on a broken config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile("SHELFKEEPER_CONFIG")
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SigningKeyID, c.SigningKeyID)
	setString(&config.RevocationStore, c.RevocationStore)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.BaseDomain, c.BaseDomain)
	setString(&config.TenantURLPattern, c.TenantURLPattern)
	setString(&config.BootstrapAdminPassword, c.BootstrapAdminPassword)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.TenantCacheTTL.Duration > 0 {
		config.TenantCacheTTL = c.TenantCacheTTL.Duration
	}
	if c.TenantCacheSize > 0 {
		config.TenantCacheSize = c.TenantCacheSize
	}
	if c.LoginRateLimitPerMinute > 0 {
		config.LoginRateLimitPerMinute = c.LoginRateLimitPerMinute
	}
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
