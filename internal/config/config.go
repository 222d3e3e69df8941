// Package config loads treeregistry settings from an optional YAML file and
// TREEREGISTRY_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"treeregistry/internal/blob"
	"treeregistry/internal/core"
)

// EnvConfigPath names the YAML file Load reads before applying env overrides.
const EnvConfigPath = "TREEREGISTRY_CONFIG"

// Config is the complete process configuration.
type Config struct {
	HTTP    HTTPConfig         `yaml:"http"`
	Log     LogConfig          `yaml:"log"`
	Auth    AuthConfig         `yaml:"auth"`
	Storage core.StorageConfig `yaml:"storage"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig selects the zap preset.
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// AuthConfig tunes password hashing.
type AuthConfig struct {
	PasswordCost int `yaml:"password_cost"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Mode: "development"},
		Storage: core.StorageConfig{
			Driver:     core.StorageSQLite,
			SQLitePath: "treeregistry.db",
			Blob:       blob.Config{Driver: blob.DriverFilesystem, FSRoot: "snapshots"},
		},
	}
}

// Load reads the file named by TREEREGISTRY_CONFIG, if set, then applies the
// process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(EnvConfigPath), os.Getenv)
}

// LoadFrom reads path (skipped when empty) over the defaults, applies
// overrides from getenv, and validates the result.
func LoadFrom(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
		return nil
	}

	str("TREEREGISTRY_HTTP_ADDR", &cfg.HTTP.Addr)
	str("TREEREGISTRY_LOG_MODE", &cfg.Log.Mode)

	driver := string(cfg.Storage.Driver)
	str("TREEREGISTRY_STORAGE_DRIVER", &driver)
	cfg.Storage.Driver = core.StorageDriver(driver)
	str("TREEREGISTRY_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("TREEREGISTRY_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("TREEREGISTRY_MYSQL_DSN", &cfg.Storage.MySQLDSN)

	blobDriver := string(cfg.Storage.Blob.Driver)
	str("TREEREGISTRY_BLOB_DRIVER", &blobDriver)
	cfg.Storage.Blob.Driver = blob.Driver(blobDriver)
	str("TREEREGISTRY_BLOB_FS_ROOT", &cfg.Storage.Blob.FSRoot)
	s3 := &cfg.Storage.Blob.S3
	str("TREEREGISTRY_BLOB_S3_BUCKET", &s3.Bucket)
	str("TREEREGISTRY_BLOB_S3_REGION", &s3.Region)
	str("TREEREGISTRY_BLOB_S3_ENDPOINT", &s3.Endpoint)
	str("TREEREGISTRY_BLOB_S3_ACCESS_KEY_ID", &s3.AccessKeyID)
	str("TREEREGISTRY_BLOB_S3_SECRET_ACCESS_KEY", &s3.SecretAccessKey)
	str("TREEREGISTRY_BLOB_S3_SESSION_TOKEN", &s3.SessionToken)
	if v := strings.TrimSpace(getenv("TREEREGISTRY_BLOB_S3_PATH_STYLE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TREEREGISTRY_BLOB_S3_PATH_STYLE: %w", err)
		}
		s3.PathStyle = b
	}

	if err := integer("TREEREGISTRY_SNAPSHOT_RETAIN", &cfg.Storage.SnapshotRetain); err != nil {
		return err
	}
	return integer("TREEREGISTRY_PASSWORD_COST", &cfg.Auth.PasswordCost)
}

// Validate rejects unknown drivers and negative tunables.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres, core.StorageMySQL, core.StorageBlob:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == core.StorageBlob {
		switch c.Storage.Blob.Driver {
		case "", blob.DriverFilesystem, blob.DriverMemory:
		case blob.DriverS3:
			if c.Storage.Blob.S3.Bucket == "" {
				return errors.New("blob driver s3 requires a bucket")
			}
		default:
			return fmt.Errorf("unknown blob driver %q", c.Storage.Blob.Driver)
		}
	}
	if c.Storage.SnapshotRetain < 0 {
		return errors.New("snapshot_retain must not be negative")
	}
	if c.Auth.PasswordCost < 0 {
		return errors.New("password_cost must not be negative")
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("http addr required")
	}
	return nil
}
