package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/crease/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"CREASE_CONFIG",
	"CREASE_ADDR",
	"CREASE_LOG_LEVEL",
	"CREASE_LOG_FORMAT",
	"CREASE_QUEUE_SIZE",
	"CREASE_WORKER_COUNT",
	"CREASE_DEDUPE_SIZE",
	"CREASE_MAX_SESSIONS",
	"CREASE_SESSION_TTL_SECONDS",
	"CREASE_RNG_SEED",
	"CREASE_AUTO_ADVANCE",
}

func clearConfigEnvVars() {
	for _, name := range configEnvVars {
		_ = os.Unsetenv(name)
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "crease.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(len(cfg.Players), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CREASE_ADDR", ":8080")
			_ = os.Setenv("CREASE_QUEUE_SIZE", "500")
			_ = os.Setenv("CREASE_WORKER_COUNT", "16")
			_ = os.Setenv("CREASE_RNG_SEED", "42")
			_ = os.Setenv("CREASE_AUTO_ADVANCE", "true")
			_ = os.Setenv("CREASE_LOG_FORMAT", "json")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.RNGSeed, convey.ShouldEqual, int64(42))
				convey.So(cfg.AutoAdvance, convey.ShouldBeTrue)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfig(t, `
# nets practice server
addr: ":7070"
worker_count: 2
session_ttl_seconds: 60
players:
  sachin:
    name: Sachin Tendulkar
    power: 90
    technique: 99
    timing: 97
`)
			_ = os.Setenv("CREASE_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and its roster replaces the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.SessionTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				profiles := cfg.Profiles()
				convey.So(len(profiles), convey.ShouldEqual, 1)
				convey.So(profiles[0].Key, convey.ShouldEqual, "sachin")
				convey.So(profiles[0].Technique, convey.ShouldEqual, 99)
			})
		})

		convey.Convey("When both file and environment set a value", func() {
			path := writeConfig(t, "addr: \":7070\"\nworker_count: 2\n")
			_ = os.Setenv("CREASE_CONFIG", path)
			_ = os.Setenv("CREASE_WORKER_COUNT", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			_ = os.Setenv("CREASE_CONFIG", writeConfig(t, "addr: [unterminated\n"))
			_, err := config.Load(ctx)

			convey.Convey("Then it is a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("CREASE_CONFIG", "/non/existent/crease.yaml")
			_, err := config.Load(ctx)

			convey.Convey("Then it is a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("CREASE_QUEUE_SIZE", "lots")
			_, err := config.Load(ctx)

			convey.Convey("Then it is a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("CREASE_MAX_SESSIONS", "0")
			_, err := config.Load(ctx)

			convey.Convey("Then it is an invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When addr is set empty", func() {
			_ = os.Setenv("CREASE_ADDR", "")
			_, err := config.Load(ctx)

			convey.Convey("Then it is an invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
