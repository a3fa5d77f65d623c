// Ininicializing common application configuration
package config

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Slicer SlicerConfig `mapstructure:"slicer"`
	Log    LogConfig    `mapstructure:"log"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
}

type ServerConfig struct {
	AppVersion   string        `mapstructure:"app_version"`
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Idle_timeout time.Duration `mapstructure:"idle_timeout"`
	Env          string        `mapstructure:"environment"`
	Mode         string        `mapstructure:"mode"`
}

type SlicerConfig struct {
	SplitY2         int           `mapstructure:"split_y2"`
	EncodeWorkers   int           `mapstructure:"encode_workers"`
	ResampleFilter  string        `mapstructure:"resample_filter"`
	PNGCompression  string        `mapstructure:"png_compression"`
	Retention       time.Duration `mapstructure:"retention"`
	ReleaseInterval time.Duration `mapstructure:"release_interval"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	MaxPixels       int64         `mapstructure:"max_pixels"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`

	// UploadRate is uploads per second, 0 disables the limit.
	UploadRate  float64 `mapstructure:"upload_rate"`
	UploadBurst int     `mapstructure:"upload_burst"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MaxUploadBytes converts the configured upload limit, 0 means unlimited.
func (c SlicerConfig) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 0
	}
	return c.MaxUploadMB << 20
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("slicer.split_y2", 800)
	v.SetDefault("slicer.encode_workers", 0)
	v.SetDefault("slicer.resample_filter", "lanczos")
	v.SetDefault("slicer.png_compression", "default")
	v.SetDefault("slicer.retention", 30*time.Minute)
	v.SetDefault("slicer.release_interval", time.Minute)
	v.SetDefault("slicer.max_upload_mb", 32)
	v.SetDefault("slicer.max_pixels", 50_000_000)
	v.SetDefault("slicer.request_timeout", 20*time.Second)
	v.SetDefault("slicer.upload_rate", 2.0)
	v.SetDefault("slicer.upload_burst", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 2)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", "slice-runs")
	v.SetDefault("kafka.dial_timeout", 5*time.Second)
	v.SetDefault("kafka.write_timeout", 5*time.Second)
}

func newViper() *viper.Viper {
	viperInstance := viper.New()
	setDefaults(viperInstance)

	viperInstance.SetEnvPrefix("SLICER")
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()
	return viperInstance
}

// LoadConfig reads config.yaml from SLICER_CONFIG_DIR (./config by default)
// on top of the defaults. A missing file is not an error: defaults and
// SLICER_* variables are enough to start.
func LoadConfig() (*viper.Viper, error) {
	return LoadConfigFrom(GetEnv("SLICER_CONFIG_DIR", "./config"))
}

func LoadConfigFrom(dir string) (*viper.Viper, error) {
	viperInstance := newViper()

	viperInstance.AddConfigPath(dir)
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	err := viperInstance.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		logrus.Warnf("Config file not found in %s, using defaults", dir)
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		logrus.Errorf("unable to decode config into struct, %v", err)
		return nil, err
	}
	return &c, nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
