package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	JWT struct {
		Secret string `yaml:"secret"`
		Expiry int    `yaml:"expiry"` // minutes
	} `yaml:"jwt"`

	Streak struct {
		Timezone          string `yaml:"timezone"`          // fixed operating zone, e.g. Asia/Seoul
		MinSessionSeconds int    `yaml:"minSessionSeconds"` // reading session validity threshold
		FreezeCap         int    `yaml:"freezeCap"`
		FreezeInterval    int    `yaml:"freezeInterval"`   // grant one freeze every N streak days
		RewardMilestones  []int  `yaml:"rewardMilestones"` // streak lengths that grant a ticket
		MissedDayCron     string `yaml:"missedDayCron"`
		StudyHourCron     string `yaml:"studyHourCron"`
		StudyHourWindow   int    `yaml:"studyHourWindow"` // trailing days for the histogram
	} `yaml:"streak"`
}

// LoadConfig reads the YAML configuration file, with env overrides for secrets
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real deployments set env vars directly
	godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		cfg.Database.URI = uri
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Streak.Timezone == "" {
		c.Streak.Timezone = "Asia/Seoul"
	}
	if c.Streak.MinSessionSeconds == 0 {
		c.Streak.MinSessionSeconds = 30
	}
	if c.Streak.FreezeCap == 0 {
		c.Streak.FreezeCap = 2
	}
	if c.Streak.FreezeInterval == 0 {
		c.Streak.FreezeInterval = 5
	}
	if len(c.Streak.RewardMilestones) == 0 {
		c.Streak.RewardMilestones = []int{7, 15, 30}
	}
	if c.Streak.MissedDayCron == "" {
		c.Streak.MissedDayCron = "10 0 * * *" // shortly after local midnight
	}
	if c.Streak.StudyHourCron == "" {
		c.Streak.StudyHourCron = "0 4 * * *"
	}
	if c.Streak.StudyHourWindow == 0 {
		c.Streak.StudyHourWindow = 30
	}
}
