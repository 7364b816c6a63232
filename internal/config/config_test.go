package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		cleanup func()
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "load with defaults (no config file)",
			setup: func() {
				viper.Reset()
			},
			cleanup: func() {},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.Store.Backend != StoreBackendBadger {
					t.Errorf("Store.Backend = %s, want badger", cfg.Store.Backend)
				}
				if cfg.Snapshot.MaxPasteSize != 1048576 {
					t.Errorf("Snapshot.MaxPasteSize = %d, want 1048576", cfg.Snapshot.MaxPasteSize)
				}
				if cfg.Snapshot.FuzzyThreshold != 0.7 {
					t.Errorf("Snapshot.FuzzyThreshold = %v, want 0.7", cfg.Snapshot.FuzzyThreshold)
				}
				if cfg.RabbitMQ.Enabled {
					t.Error("RabbitMQ.Enabled = true, want false")
				}
				if !cfg.Cache.Enabled {
					t.Error("Cache.Enabled = false, want true")
				}
			},
		},
		{
			name: "load with environment variables",
			setup: func() {
				viper.Reset()
				viper.SetEnvPrefix("APP")
				viper.AutomaticEnv()
				os.Setenv("APP_SERVER_PORT", "9090")
				os.Setenv("APP_STORE_BACKEND", "postgres")
				os.Setenv("APP_DATABASE_HOST", "testdb")
				os.Setenv("APP_DATABASE_PORT", "5433")
				// Manually bind env vars since AutomaticEnv doesn't work with nested keys
				viper.BindEnv("server.port", "APP_SERVER_PORT")
				viper.BindEnv("store.backend", "APP_STORE_BACKEND")
				viper.BindEnv("database.host", "APP_DATABASE_HOST")
				viper.BindEnv("database.port", "APP_DATABASE_PORT")
			},
			cleanup: func() {
				os.Unsetenv("APP_SERVER_PORT")
				os.Unsetenv("APP_STORE_BACKEND")
				os.Unsetenv("APP_DATABASE_HOST")
				os.Unsetenv("APP_DATABASE_PORT")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.Store.Backend != StoreBackendPostgres {
					t.Errorf("Store.Backend = %s, want postgres", cfg.Store.Backend)
				}
				if cfg.Database.Host != "testdb" {
					t.Errorf("Database.Host = %s, want testdb", cfg.Database.Host)
				}
				if cfg.Database.Port != 5433 {
					t.Errorf("Database.Port = %d, want 5433", cfg.Database.Port)
				}
			},
		},
		{
			name: "unknown store backend is rejected",
			setup: func() {
				viper.Reset()
				os.Setenv("APP_STORE_BACKEND", "indexeddb")
				viper.BindEnv("store.backend", "APP_STORE_BACKEND")
			},
			cleanup: func() {
				os.Unsetenv("APP_STORE_BACKEND")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			defer func() {
				if tt.cleanup != nil {
					tt.cleanup()
				}
			}()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	tests := []struct {
		name string
		key  string
		want interface{}
	}{
		{"server port", "server.port", 8080},
		{"database host", "database.host", "localhost"},
		{"database port", "database.port", 5432},
		{"database name", "database.name", "snapshots"},
		{"database sslmode", "database.sslmode", "disable"},
		{"store backend", "store.backend", "badger"},
		{"store badgerdir", "store.badgerdir", "./data/snapshots"},
		{"snapshot maxpastesize", "snapshot.maxpastesize", 1048576},
		{"snapshot fuzzythreshold", "snapshot.fuzzythreshold", 0.7},
		{"cache sizemb", "cache.sizemb", 16},
		{"rabbitmq enabled", "rabbitmq.enabled", false},
		{"rabbitmq exchange", "rabbitmq.exchange", "performance.snapshots"},
		{"rabbitmq routingkeyprefix", "rabbitmq.routingkeyprefix", "snapshot"},
		{"youtube maxresults", "youtube.maxresults", 50},
		{"metrics path", "metrics.path", "/metrics"},
		{"logging level", "logging.level", "info"},
		{"logging file", "logging.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.want {
				t.Errorf("viper.Get(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	if viper.GetDuration("server.shutdowntimeout") != 30*time.Second {
		t.Errorf("server.shutdowntimeout = %v, want 30s", viper.GetDuration("server.shutdowntimeout"))
	}
	if viper.GetDuration("cache.ttl") != 5*time.Minute {
		t.Errorf("cache.ttl = %v, want 5m", viper.GetDuration("cache.ttl"))
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Store:    StoreConfig{Backend: StoreBackendBadger, BadgerDir: "/tmp/snapshots"},
			Snapshot: SnapshotConfig{MaxPasteSize: 1024, FuzzyThreshold: 0.7},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, true},
		{"badger without dir", func(c *Config) { c.Store.BadgerDir = "" }, true},
		{"postgres without dir", func(c *Config) {
			c.Store.Backend = StoreBackendPostgres
			c.Store.BadgerDir = ""
		}, false},
		{"paste size zero", func(c *Config) { c.Snapshot.MaxPasteSize = 0 }, true},
		{"threshold zero", func(c *Config) { c.Snapshot.FuzzyThreshold = 0 }, true},
		{"threshold above one", func(c *Config) { c.Snapshot.FuzzyThreshold = 1.5 }, true},
		{"threshold exactly one", func(c *Config) { c.Snapshot.FuzzyThreshold = 1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionStrings(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "u",
		Password: "p",
		Name:     "snapshots",
		SSLMode:  "disable",
	}

	wantConn := "host=db port=5432 user=u password=p dbname=snapshots sslmode=disable"
	if got := d.ConnString(); got != wantConn {
		t.Errorf("ConnString() = %q, want %q", got, wantConn)
	}

	wantURL := "postgres://u:p@db:5432/snapshots?sslmode=disable"
	if got := d.URL(); got != wantURL {
		t.Errorf("URL() = %q, want %q", got, wantURL)
	}
}
