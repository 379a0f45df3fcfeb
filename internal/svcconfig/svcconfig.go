// Package svcconfig loads the service's startup configuration from the
// environment, following the teacher's `config.LoadEnvVar` convention: every
// variable can be set directly, or indirected through a `_FILE` suffix
// naming a file whose first line holds the value, so secrets can be mounted
// rather than placed directly in the process environment.
package svcconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is every environment-derived setting sapfluxd needs to start.
type Config struct {
	DatabaseDSN string

	ObjectStoreEndpoint  string
	ObjectStoreRegion    string
	ObjectStoreBucket    string
	ObjectStoreAccessKey string
	ObjectStoreSecretKey string
	ObjectStoreForcePath bool

	HTTPBindAddress string

	// DSTFallbackPolicy is loaded and validated ("earliest" or "latest",
	// default "earliest") but nothing else reads it: internal/timestampfix
	// always resolves a fall-back repeated hour to the later (standard time)
	// offset and a spring-forward gap to the offset in effect before it.
	DSTFallbackPolicy string

	LogLevel string
}

// Load reads Config from the process environment. Required variables
// produce an error naming all of them at once, matching the teacher's
// preference for failing loudly and completely at startup rather than one
// missing variable at a time.
func Load() (Config, error) {
	var cfg Config
	var missing []string

	if err := LoadEnvVar(&cfg.DatabaseDSN, "SAPFLUXD_DATABASE_DSN", ""); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	if cfg.DatabaseDSN == "" {
		missing = append(missing, "SAPFLUXD_DATABASE_DSN")
	}

	if err := LoadEnvVar(&cfg.ObjectStoreEndpoint, "SAPFLUXD_S3_ENDPOINT", ""); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	if err := LoadEnvVar(&cfg.ObjectStoreRegion, "SAPFLUXD_S3_REGION", "us-east-1"); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	if err := LoadEnvVar(&cfg.ObjectStoreBucket, "SAPFLUXD_S3_BUCKET", ""); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	if cfg.ObjectStoreBucket == "" {
		missing = append(missing, "SAPFLUXD_S3_BUCKET")
	}
	if err := LoadEnvVar(&cfg.ObjectStoreAccessKey, "SAPFLUXD_S3_ACCESS_KEY_ID", ""); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	if cfg.ObjectStoreAccessKey == "" {
		missing = append(missing, "SAPFLUXD_S3_ACCESS_KEY_ID")
	}
	if err := LoadEnvVar(&cfg.ObjectStoreSecretKey, "SAPFLUXD_S3_SECRET_ACCESS_KEY", ""); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	if cfg.ObjectStoreSecretKey == "" {
		missing = append(missing, "SAPFLUXD_S3_SECRET_ACCESS_KEY")
	}

	var forcePath string
	if err := LoadEnvVar(&forcePath, "SAPFLUXD_S3_FORCE_PATH_STYLE", "false"); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	cfg.ObjectStoreForcePath, _ = strconv.ParseBool(forcePath)

	if err := LoadEnvVar(&cfg.HTTPBindAddress, "SAPFLUXD_HTTP_ADDR", ":8080"); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	if err := LoadEnvVar(&cfg.DSTFallbackPolicy, "SAPFLUXD_DST_FALLBACK_POLICY", "earliest"); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}
	if cfg.DSTFallbackPolicy != "earliest" && cfg.DSTFallbackPolicy != "latest" {
		return cfg, fmt.Errorf("svcconfig: invalid SAPFLUXD_DST_FALLBACK_POLICY %q (want earliest or latest)", cfg.DSTFallbackPolicy)
	}
	if err := LoadEnvVar(&cfg.LogLevel, "SAPFLUXD_LOG_LEVEL", "INFO"); err != nil {
		return cfg, fmt.Errorf("svcconfig: %w", err)
	}

	if len(missing) > 0 {
		return cfg, fmt.Errorf("svcconfig: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// LoadEnvVar reads envName into *cnd if it is already non-empty, leaves it
// alone. Otherwise it reads the named environment variable directly; failing
// that, it reads envName+"_FILE" as a path and takes the file's first line.
// Falls back to defVal if nothing is set anywhere.
func LoadEnvVar(cnd *string, envName, defVal string) error {
	if cnd == nil {
		return errors.New("svcconfig: nil destination")
	}
	if *cnd != "" {
		return nil
	}
	if envName == "" {
		return nil
	}

	*cnd = os.Getenv(envName)
	if *cnd != "" {
		return nil
	}
	*cnd = defVal

	filename := os.Getenv(envName + "_FILE")
	if filename == "" {
		return nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("read %s_FILE: %w", envName, err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	s.Scan()
	line := s.Text()
	if line == "" {
		return fmt.Errorf("%s_FILE %q is empty", envName, filename)
	}
	*cnd = line
	return nil
}
