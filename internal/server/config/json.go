package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ropbridge/ropbridge/internal/flagx"
	"github.com/ropbridge/ropbridge/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "15m" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config struct which
// uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	ERPDatabaseDSN               string         `json:"erp_database_dsn"`
	FirmNo                       string         `json:"firm_no"`
	PeriodNo                     string         `json:"period_no"`
	SecretKey                    string         `json:"secret_key"`
	Issuer                       string         `json:"issuer"`
	Audience                     string         `json:"audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	StoreTimeout                 timex.Duration `json:"store_timeout"`
	LogoBaseURL                  string         `json:"logo_base_url"`
	LogoUsername                 string         `json:"logo_username"`
	LogoPassword                 string         `json:"logo_password"`
	LogoAPIKey                   string         `json:"logo_api_key"`
	AMQPURL                      string         `json:"amqp_url"`
	AlertQueue                   string         `json:"alert_queue"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.ERPDatabaseDSN = c.ERPDatabaseDSN
	config.FirmNo = c.FirmNo
	config.PeriodNo = c.PeriodNo
	config.SecretKey = c.SecretKey
	config.Issuer = c.Issuer
	config.Audience = c.Audience
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.StoreTimeout = time.Duration(c.StoreTimeout.Duration)
	config.LogoBaseURL = c.LogoBaseURL
	config.LogoUsername = c.LogoUsername
	config.LogoPassword = c.LogoPassword
	config.LogoAPIKey = c.LogoAPIKey
	config.AMQPURL = c.AMQPURL
	config.AlertQueue = c.AlertQueue
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
