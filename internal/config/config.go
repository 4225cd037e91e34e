package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Worker  Worker  `yaml:"worker"`
	Reader  Reader  `yaml:"reader"`
	Issuers Issuers `yaml:"issuers"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	SQLitePath    string `yaml:"sqlitePath"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Worker struct {
	Concurrency int           `yaml:"concurrency"`
	Queue       string        `yaml:"queue"`
	PopTimeout  time.Duration `yaml:"popTimeout"`
	MaxCascade  int           `yaml:"maxCascade"`
}

type Reader struct {
	Endpoint string        `yaml:"endpoint"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

type Issuers struct {
	Trusted []string `yaml:"trusted"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config")
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	config.applyDefaults()

	if config.Server.PostgresDsn == "" && config.Server.SQLitePath == "" {
		return Config{}, errors.New("either server.postgresDsn or server.sqlitePath is required")
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 4
	}
	if c.Worker.Queue == "" {
		c.Worker.Queue = "scorer:tasks"
	}
	if c.Worker.PopTimeout <= 0 {
		c.Worker.PopTimeout = 5 * time.Second
	}
	if c.Worker.MaxCascade <= 0 {
		c.Worker.MaxCascade = 64
	}
	if c.Reader.CacheTTL <= 0 {
		c.Reader.CacheTTL = 30 * time.Second
	}
}
