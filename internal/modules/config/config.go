package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	webhookSecretENV  = "WEBHOOK_SECRET"
)

// TraderConfig — одна независимая учётка на бирже.
type TraderConfig struct {
	ID         string `yaml:"id"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Passphrase string `yaml:"passphrase"`
	DemoMode   bool   `yaml:"demo_mode"`
	NotifyChat int64  `yaml:"notify_chat"`
}

// Config ...
type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
	} `yaml:"service"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	Webhook struct {
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`

	Traders []TraderConfig `yaml:"traders"`

	// Сколько секунд ждём fill до отмены/отказа, отдельно для buy и sell.
	Timeouts struct {
		Buy  int `yaml:"buy"`
		Sell int `yaml:"sell"`
	} `yaml:"timeouts"`

	// Общий лимит исходящих вызовов биржи на все учётки.
	RateLimitRPS int `yaml:"rate_limit_rps"`

	// Символы для публичного тикер-стрима (нереализованный P/L в /positions).
	WatchSymbols []string `yaml:"watch_symbols"`
}

func (c *Config) BuyTimeout() time.Duration  { return time.Duration(c.Timeouts.Buy) * time.Second }
func (c *Config) SellTimeout() time.Duration { return time.Duration(c.Timeouts.Sell) * time.Second }

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		RateLimitRPS: intFromEnv("RATE_LIMIT_RPS", 15),
	}
	config.Timeouts.Buy = intFromEnv("TIMEOUT_BUY", 8)
	config.Timeouts.Sell = intFromEnv("TIMEOUT_SELL", 8)

	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	secret := os.Getenv(webhookSecretENV)
	if secret != "" {
		config.Webhook.Secret = secret
	}

	if len(config.Traders) == 0 {
		return nil, fmt.Errorf("config: at least one trader is required")
	}
	seen := map[string]bool{}
	for _, t := range config.Traders {
		if t.ID == "" {
			return nil, fmt.Errorf("config: trader id is required")
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("config: duplicate trader id %q", t.ID)
		}
		seen[t.ID] = true
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
