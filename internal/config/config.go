package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	DriverMinIO  = "minio"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port               string
	Timezone           string
	LogLevel           string
	CORSAllowedOrigins []string
	// ReadBufferBytes bounds how much of a request body is prefetched before
	// the rest is handed to handlers as a stream.
	ReadBufferBytes int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// S3Config holds settings for the AWS S3 driver.
type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the AWS endpoint (LocalStack and similar).
	Endpoint string
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	Driver    string
	Bucket    string
	PartBytes int64
	MinIO     MinIOConfig
	S3        S3Config
}

// UploadConfig holds document intake limits and naming settings.
type UploadConfig struct {
	MaxBytes     int64
	KeyPrefix    string
	SignedURLTTL int
	ListMaxItems int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated once at startup and passed by reference to constructors.
type AppConfig struct {
	Server  ServerConfig
	Storage StorageConfig
	Upload  UploadConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:               getEnv("PORT", "5000"),
			Timezone:           getEnv("APP_TIMEZONE", "UTC"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
			ReadBufferBytes:    getEnvInt("SERVER_READ_BUFFER_BYTES", 1<<20),
		},
		Storage: StorageConfig{
			Driver:    strings.ToLower(getEnv("STORAGE_DRIVER", DriverMinIO)),
			Bucket:    getEnv("STORAGE_BUCKET", getEnv("AWS_S3_BUCKET_NAME", "")),
			PartBytes: int64(getEnvInt("STREAM_PART_BYTES", 5<<20)),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Region:    getEnv("MINIO_REGION", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:    getEnv("AWS_REGION", "us-east-1"),
				AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:  getEnv("AWS_S3_ENDPOINT", ""),
			},
		},
		Upload: UploadConfig{
			MaxBytes:     int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
			KeyPrefix:    getEnv("UPLOAD_KEY_PREFIX", "documents/"),
			SignedURLTTL: getEnvInt("SIGNED_URL_TTL_SEC", 3600),
			ListMaxItems: getEnvInt("LIST_MAX_ITEMS", 10),
		},
	}
}

// Validate reports settings that would make the storage driver unusable.
func (c *AppConfig) Validate() error {
	if c.Storage.Bucket == "" && c.Storage.Driver != DriverMemory {
		return fmt.Errorf("storage bucket is required")
	}
	switch c.Storage.Driver {
	case DriverMinIO:
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("minio endpoint is required")
		}
	case DriverS3:
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("aws region is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}
	if c.Upload.SignedURLTTL <= 0 {
		return fmt.Errorf("signed url ttl must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
