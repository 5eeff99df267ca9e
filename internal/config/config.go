package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds every setting of the capture service.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Camera  CameraConfig  `yaml:"camera"`
	Capture CaptureConfig `yaml:"capture"`

	LogDirectory string `yaml:"log_dir" env:"LOG_DIR" env-default:"./logs"`
	MetricsAddr  string `yaml:"metrics_addr" env:"METRICS_ADDR"` // empty disables the endpoint
}

// StoreConfig selects and addresses the document store.
type StoreConfig struct {
	Driver         string        `yaml:"driver" env:"STORE_DRIVER" env-default:"mongo" validate:"oneof=mongo sqlite"`
	MongoURI       string        `yaml:"mongo_uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017" validate:"required_if=Driver mongo"`
	DatabaseName   string        `yaml:"database" env:"MONGO_DATABASE" env-default:"camera" validate:"required"`
	CollectionName string        `yaml:"collection" env:"MONGO_COLLECTION" env-default:"camera_Image2" validate:"required"`
	SQLitePath     string        `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"data/captures.db" validate:"required_if=Driver sqlite"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"STORE_CONNECT_TIMEOUT" env-default:"10s" validate:"gt=0"`
}

// SensorConfig addresses the motion sensor input.
type SensorConfig struct {
	MotionPin int `yaml:"motion_pin" env:"MOTION_PIN" env-default:"12" validate:"gte=0,lte=40"` // BCM numbering
}

// CameraConfig describes the attached camera.
type CameraConfig struct {
	Device      string `yaml:"device" env:"CAMERA_DEVICE" env-default:"0" validate:"required"`
	Width       int    `yaml:"width" env:"CAMERA_WIDTH" env-default:"1920" validate:"gt=0"`
	Height      int    `yaml:"height" env:"CAMERA_HEIGHT" env-default:"1080" validate:"gt=0"`
	LoresWidth  int    `yaml:"lores_width" env:"CAMERA_LORES_WIDTH" env-default:"640" validate:"gt=0"`
	LoresHeight int    `yaml:"lores_height" env:"CAMERA_LORES_HEIGHT" env-default:"480" validate:"gt=0"`
	JPEGQuality int    `yaml:"jpeg_quality" env:"CAMERA_JPEG_QUALITY" env-default:"90" validate:"gte=1,lte=100"`
	Preview     bool   `yaml:"preview" env:"CAMERA_PREVIEW" env-default:"false"`
}

// CaptureConfig tunes the capture-retention loop.
type CaptureConfig struct {
	RetentionWindow time.Duration `yaml:"retention_window" env:"RETENTION_WINDOW" env-default:"30s" validate:"gt=0"`
	ActiveInterval  time.Duration `yaml:"active_interval" env:"ACTIVE_INTERVAL" env-default:"3s" validate:"gt=0"`
	IdleInterval    time.Duration `yaml:"idle_interval" env:"IDLE_INTERVAL" env-default:"100ms" validate:"gt=0"`
	CallTimeout     time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT" env-default:"10s" validate:"gt=0"`
}

var validate = validator.New()

// Load reads the configuration. Values come from the defaults, an optional
// .env file in the working directory, an optional YAML file named by
// CONFIG_PATH and finally the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad is Load for main packages.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Capture.ActiveInterval <= c.Capture.IdleInterval {
		return fmt.Errorf("invalid configuration: active interval %s must exceed idle interval %s",
			c.Capture.ActiveInterval, c.Capture.IdleInterval)
	}

	return nil
}

// PinName returns the GPIO register name of the motion input.
func (s SensorConfig) PinName() string {
	return fmt.Sprintf("GPIO%d", s.MotionPin)
}
