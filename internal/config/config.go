package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel     string  `yaml:"log-level" env-default:"info"`
	HTTPPort     string  `yaml:"http-port" env-default:"9090"`
	Redis        Redis   `yaml:"redis"`
	JWTSecretKey string  `yaml:"jwt-secret-key"`
	Cleanup      Cleanup `yaml:"cleanup"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

type Cleanup struct {
	GraceSeconds    int `yaml:"grace-seconds" env-default:"5"`
	IntervalSeconds int `yaml:"interval-seconds" env-default:"1"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func (that *Cleanup) Grace() time.Duration {
	return time.Duration(that.GraceSeconds) * time.Second
}

func (that *Cleanup) Interval() time.Duration {
	return time.Duration(that.IntervalSeconds) * time.Second
}
