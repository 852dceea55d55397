package utils

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Application
	AppMode     string `yaml:"APP_MODE"`
	AppPort     string `yaml:"APP_PORT"`
	LogMode     string `yaml:"LOG_MODE"`
	LogFile     string `yaml:"LOG_FILE"`
	RateLimit   int    `yaml:"RATE_LIMIT"`
	CORSOrigins string `yaml:"CORS_ORIGINS"`

	ReadTimeout  time.Duration `yaml:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"WRITE_TIMEOUT"`

	// Build info reported by /api/v1/version
	AppVersion string `yaml:"APP_VERSION"`
	CommitSHA  string `yaml:"COMMIT_SHA"`
	BuildTime  string `yaml:"BUILD_TIME"`

	// Moderation webhook; empty URL disables it
	ModerationWebhookURL string        `yaml:"MODERATION_WEBHOOK_URL"`
	WebhookTimeout       time.Duration `yaml:"WEBHOOK_TIMEOUT"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`
	DBSSLMode  string `yaml:"DB_SSL_MODE"`
	DBTimeZone string `yaml:"DB_TIMEZONE"`

	// AWS S3 configuration
	AWSS3RawBucket       string        `yaml:"AWS_S3_RAW_BUCKET"`
	AWSS3ProcessedBucket string        `yaml:"AWS_S3_PROCESSED_BUCKET"`
	AWSS3Region          string        `yaml:"AWS_S3_REGION"`
	AWSS3Endpoint        string        `yaml:"AWS_S3_ENDPOINT"`
	AWSS3PublicURL       string        `yaml:"AWS_S3_PUBLIC_URL"`
	AWSAccessKey         string        `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey         string        `yaml:"AWS_SECRET_KEY"`
	UploadURLTTL         time.Duration `yaml:"UPLOAD_URL_TTL"`

	// Redis job queue
	RedisAddr     string `yaml:"REDIS_ADDR"`
	RedisPassword string `yaml:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"REDIS_DB"`
	QueueName     string `yaml:"QUEUE_NAME"`

	// Media worker
	WorkerConcurrency int           `yaml:"WORKER_CONCURRENCY"`
	WorkerMaxAttempts int           `yaml:"WORKER_MAX_ATTEMPTS"`
	JobTimeout        time.Duration `yaml:"JOB_TIMEOUT"`
	DequeueTimeout    time.Duration `yaml:"DEQUEUE_TIMEOUT"`
}

func DefaultConfig() Config {
	return Config{
		AppMode:           "all",
		AppPort:           "8080",
		LogMode:           "dev",
		RateLimit:         50,
		CORSOrigins:       "*",
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		AppVersion:        "1.0.0",
		WebhookTimeout:    10 * time.Second,
		DBPort:            "5432",
		DBSSLMode:         "disable",
		DBTimeZone:        "UTC",
		AWSS3Region:       "us-east-1",
		UploadURLTTL:      10 * time.Minute,
		RedisAddr:         "localhost:6379",
		QueueName:         "media-jobs",
		WorkerConcurrency: 2,
		WorkerMaxAttempts: 5,
		JobTimeout:        60 * time.Second,
		DequeueTimeout:    5 * time.Second,
	}
}

// LoadConfig reads the yaml file at path on top of DefaultConfig and then
// applies environment variables named after the yaml keys. A missing file is
// not an error so the service can run from the environment alone.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("yaml")
		raw, ok := os.LookupEnv(key)
		if key == "" || !ok {
			continue
		}
		f := v.Field(i)
		switch {
		case f.Type() == reflect.TypeOf(time.Duration(0)):
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			f.SetInt(int64(d))
		case f.Kind() == reflect.String:
			f.SetString(raw)
		case f.Kind() == reflect.Int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			f.SetInt(int64(n))
		case f.Kind() == reflect.Bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			f.SetBool(b)
		}
	}
	return nil
}
