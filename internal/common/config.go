package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	OCR      OCRConfig
	Queue    QueueConfig
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// StorageConfig holds the directories the pipeline reads from and writes to.
type StorageConfig struct {
	UploadDir    string // watched for incoming invoice files; empty disables the watcher
	ExcelDir     string // generated spreadsheet artifacts
	IngestUserID string // owner recorded on documents picked up from UploadDir
}

// OCRConfig holds OCR-related configuration.
type OCRConfig struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Language  string // default "eng"
	DPI       int    // rasterization DPI for scanned PDFs, default 300
	MaxPages  int    // 0 = no limit
}

// QueueConfig holds worker queue configuration.
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
	PollInterval   time.Duration
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is applied first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Storage: StorageConfig{
			UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
			ExcelDir:     getEnv("EXCEL_DIR", "./exports"),
			IngestUserID: getEnv("INGEST_USER_ID", ""),
		},
		OCR: OCRConfig{
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract: getEnv("TESSERACT_BIN", "tesseract"),
			Language:  getEnv("TESSERACT_LANG", "eng"),
			DPI:       getEnvAsInt("OCR_DPI", 300),
			MaxPages:  getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 4),
			Size:           getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", 3*time.Minute),
			PollInterval:   getEnvAsDuration("QUEUE_POLL_INTERVAL", 10*time.Second),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Storage.ExcelDir == "" {
		return NewAppError("CONFIG_ERROR", "EXCEL_DIR is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
