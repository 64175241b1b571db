package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

// Conf holds the active configuration; set by NewConfig.
var Conf *Config

type (
	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		Build    string
		WorkDir  string

		AppName           string
		SecretKey         string
		FrontendBaseURL   string
		DefaultFromName   string
		DefaultFromAddr   string
		SendgridApiKey    string
		RollbarToken      string
		ProjectCodePrefix string

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Uploads  UploadsConfig

		// optional YAML file overriding the built-in requirement catalog
		CatalogPath string
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	UploadsConfig struct {
		RootDir string
		MaxSize int64 // bytes
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Approvio")
	conf.SetDefault("secretKey", "x1u$+jm0)b!gq#n(w-2_sdei&7t^kf4mzpca5vhr8l9oy63@")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromName", "Approvio")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("projectCodePrefix", "PRJ")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("server.host", "0.0.0.0:8000")
	conf.SetDefault("server.debugHost", "0.0.0.0:4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.user", "approvio")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.name", "approvio")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("uploads.rootDir", filepath.Join(os.TempDir(), "approvio-uploads"))
	conf.SetDefault("uploads.maxSize", int64(10<<20))
	conf.SetDefault("catalogPath", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	conf.SetDefault("env", env)
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	if env == "QA" || env == "PROD" {
		conf.SetDefault("debug", false)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd: %v", err)
	}

	c := &Config{
		Env:               conf.GetString("env"),
		WorkDir:           wd,
		Debug:             conf.GetBool("debug"),
		TestMode:          conf.GetBool("testMode"),
		Build:             conf.GetString("build"),
		AppName:           conf.GetString("appName"),
		SecretKey:         conf.GetString("secretKey"),
		FrontendBaseURL:   conf.GetString("frontendBaseURL"),
		DefaultFromName:   conf.GetString("defaultFromName"),
		DefaultFromAddr:   conf.GetString("defaultFromEmail"),
		SendgridApiKey:    conf.GetString("sendgridApiKey"),
		RollbarToken:      conf.GetString("rollbarToken"),
		ProjectCodePrefix: conf.GetString("projectCodePrefix"),

		JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),

		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Name:          conf.GetString("database.name"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Uploads: UploadsConfig{
			RootDir: conf.GetString("uploads.rootDir"),
			MaxSize: conf.GetInt64("uploads.maxSize"),
		},
		CatalogPath: conf.GetString("catalogPath"),
	}

	if err = c.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	Conf = c
	return c
}

func (c *Config) validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.SecretKey, "secretKey"),
		vala.StringNotEmpty(c.Server.Host, "server.host"),
		vala.StringNotEmpty(c.Database.Engine, "database.engine"),
		vala.StringNotEmpty(c.Database.Name, "database.name"),
		vala.StringNotEmpty(c.Uploads.RootDir, "uploads.rootDir"),
		vala.GreaterThan(int(c.Uploads.MaxSize), 0, "uploads.maxSize"),
	).Check()
}
