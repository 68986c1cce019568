package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		BodyLimit       string
		AllowedOrigins  []string
		DisableReqLogs  bool
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
	}

	LLMConfig struct {
		Provider    string // gemini | openai | dummy
		APIKey      string
		Model       string
		BaseURL     string
		Temperature float32
	}

	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		RollbarToken string
		WorkDir      string

		Server   ServerConfig
		Database DatabaseConfig
		LLM      LLMConfig
	}
)

// Address returns the "host:port" pair of the database server.
func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// InMemory reports whether the catalog should be kept in process memory instead of Postgres.
func (c DatabaseConfig) InMemory() bool {
	return strings.EqualFold(c.Engine, "memory")
}

func NewConfig() *Config {
	conf := viper.New()
	wd := Getwd()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Maktab AI")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":3001")
	conf.SetDefault("server.debugHost", ":4001")
	conf.SetDefault("server.bodyLimit", "50M")
	conf.SetDefault("server.allowedOrigins", []string{"*"})
	conf.SetDefault("server.disableReqLogs", false)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "maktab_ai")
	conf.SetDefault("database.user", "maktab")
	conf.SetDefault("database.password", "maktab")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("database.maxOpenConns", 10)

	conf.SetDefault("llm.provider", "")
	conf.SetDefault("llm.apiKey", "")
	conf.SetDefault("llm.model", "")
	conf.SetDefault("llm.baseURL", "")
	conf.SetDefault("llm.temperature", 0.7)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		RollbarToken: conf.GetString("rollbarToken"),
		WorkDir:      wd,
		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			Address:         conf.GetString("server.address"),
			DebugHost:       conf.GetString("server.debugHost"),
			BodyLimit:       conf.GetString("server.bodyLimit"),
			AllowedOrigins:  conf.GetStringSlice("server.allowedOrigins"),
			DisableReqLogs:  conf.GetBool("server.disableReqLogs"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
			MaxOpenConns:  conf.GetInt("database.maxOpenConns"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(conf.GetString("llm.provider")),
			APIKey:      conf.GetString("llm.apiKey"),
			Model:       conf.GetString("llm.model"),
			BaseURL:     conf.GetString("llm.baseURL"),
			Temperature: float32(conf.GetFloat64("llm.temperature")),
		},
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
		if c.Debug && c.LLM.APIKey == "" {
			c.LLM.Provider = "dummy"
		}
	}
	return c
}
