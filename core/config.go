package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName                   string
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		WorkDir                   string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration
		SeedMockData              bool

		Server   ServerConfig
		Database DatabaseConfig
		Cache    CacheConfig
		Events   EventsConfig
		Logging  LoggingConfig
		Finance  FinanceConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		DisableReqLogs            bool
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Enabled       bool
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	CacheConfig struct {
		Size          int64
		TTL           time.Duration
		MemcachedHost string
	}

	EventsConfig struct {
		AMQPURL  string
		Exchange string
	}

	LoggingConfig struct {
		Level      string
		Console    bool
		FluentHost string
		FluentPort int
		FluentTag  string
	}

	FinanceConfig struct {
		RentGraceDays     int
		Currency          string
		ExpiringLeaseDays int
	}
)

func (sc ServerConfig) Address() string {
	return net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
}

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
// Values are read from `<ENV>_<KEY>` environment variables, optionally seeded from `config/.env.<env>`.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "Kodi")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("secretKey", "k0d1-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Kodi <noreply@localhost>")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("seedMockData", false)

	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverDisableReqLogs", false)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("dbEnabled", false)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "kodi")
	v.SetDefault("dbUser", "kodi")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("cacheSize", 1000)
	v.SetDefault("cacheTTL", time.Minute)
	v.SetDefault("memcachedHost", "")

	v.SetDefault("amqpURL", "")
	v.SetDefault("eventsExchange", "kodi.events")

	v.SetDefault("logLevel", "info")
	v.SetDefault("logConsole", true)
	v.SetDefault("fluentHost", "")
	v.SetDefault("fluentPort", 24224)
	v.SetDefault("fluentTag", "kodi")

	v.SetDefault("rentGraceDays", 5)
	v.SetDefault("currency", "USD")
	v.SetDefault("expiringLeaseDays", 60)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		AppName:                   v.GetString("appName"),
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		SecretKey:                 v.GetString("secretKey"),
		WorkDir:                   workDir,
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail:          *fromEmail,
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		SeedMockData:              v.GetBool("seedMockData"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			DisableReqLogs:            v.GetBool("serverDisableReqLogs"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Enabled:       v.GetBool("dbEnabled"),
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Cache: CacheConfig{
			Size:          v.GetInt64("cacheSize"),
			TTL:           v.GetDuration("cacheTTL"),
			MemcachedHost: v.GetString("memcachedHost"),
		},
		Events: EventsConfig{
			AMQPURL:  v.GetString("amqpURL"),
			Exchange: v.GetString("eventsExchange"),
		},
		Logging: LoggingConfig{
			Level:      v.GetString("logLevel"),
			Console:    v.GetBool("logConsole"),
			FluentHost: v.GetString("fluentHost"),
			FluentPort: v.GetInt("fluentPort"),
			FluentTag:  v.GetString("fluentTag"),
		},
		Finance: FinanceConfig{
			RentGraceDays:     v.GetInt("rentGraceDays"),
			Currency:          v.GetString("currency"),
			ExpiringLeaseDays: v.GetInt("expiringLeaseDays"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: no DB, no external services.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.SecretKey = "secret"
	conf.Server.DisableReqLogs = true
	conf.Database.Enabled = false
	conf.Cache.MemcachedHost = ""
	conf.Events.AMQPURL = ""
	conf.Logging.Console = false
	conf.Logging.FluentHost = ""
	return conf
}
