package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database engines
const (
	EngineBadger   = "badger"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		AppName          string
		Env              string // DEV, TEST, QA, PROD
		Build            string
		SecretKey        string
		SchoolName       string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string
		WorkDir          string

		Server   ServerConfig
		Database DatabaseConfig
		Sync     SyncConfig
		Admin    AdminConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Path          string // badger data directory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SyncConfig struct {
		Enabled        bool
		BaseURL        string
		Account        string
		Token          string
		DriveBackupURL string
		Timeout        time.Duration
	}

	// AdminConfig holds the credentials guarding destructive actions.
	// PasswordHash is a bcrypt hash, see `admin hashpassword`.
	AdminConfig struct {
		Username     string
		PasswordHash string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (c *Config) IsProd() bool { return c.Env == "PROD" }

// NewConfig loads the configuration for the current ENV from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the ENV name, e.g. DEV_DATABASE_ENGINE.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "SchoolDesk")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k3d9-wmr)pnb$+11=dz&uoxh2(h!x)#*c2(#yg4h^$qegm9amy")
	v.SetDefault("schoolName", "Sunrise")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", EngineBadger)
	v.SetDefault("database.path", filepath.Join("data", "schooldesk"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "schooldesk")
	v.SetDefault("database.user", "schooldesk")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("sync.enabled", false)
	v.SetDefault("sync.baseURL", "")
	v.SetDefault("sync.account", "")
	v.SetDefault("sync.token", "")
	v.SetDefault("sync.driveBackupURL", "")
	v.SetDefault("sync.timeout", 30*time.Second)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.passwordHash", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		SchoolName:       v.GetString("schoolName"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridAPIKey:   v.GetString("sendgridAPIKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		WorkDir:          wd,
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Path:          v.GetString("database.path"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Sync: SyncConfig{
			Enabled:        v.GetBool("sync.enabled"),
			BaseURL:        v.GetString("sync.baseURL"),
			Account:        v.GetString("sync.account"),
			Token:          v.GetString("sync.token"),
			DriveBackupURL: v.GetString("sync.driveBackupURL"),
			Timeout:        v.GetDuration("sync.timeout"),
		},
		Admin: AdminConfig{
			Username:     v.GetString("admin.username"),
			PasswordHash: v.GetString("admin.passwordHash"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory storage, no remote sync.
func NewTestConfig() *Config {
	return &Config{
		Debug:            false,
		TestMode:         true,
		AppName:          "SchoolDesk",
		Env:              "TEST",
		Build:            "test",
		SecretKey:        "test-secret",
		SchoolName:       "Sunrise",
		DefaultFromEmail: "noreply@localhost",
		Server: ServerConfig{
			Host:                      "localhost:0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Database: DatabaseConfig{Engine: EngineMemory},
		Admin:    AdminConfig{Username: "admin"},
	}
}
