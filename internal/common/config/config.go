package config

import (
	"os"
	"strconv"
	"strings"
)

// ============================================================
// Configuration
// ============================================================

// MinIOConfig holds object storage settings. An empty Endpoint keeps
// artifacts on the local disk.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

// TracingConfig selects the OTLP trace exporter. Tracing stays off unless an
// endpoint is configured.
type TracingConfig struct {
	Endpoint    string
	Protocol    string
	ServiceName string
	SampleRatio float64
}

func (t TracingConfig) Enabled() bool {
	return t.Endpoint != ""
}

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	BodyLimitMB  int
	LogFormat    string
	CORSOrigins  []string

	DBPath       string
	ArtifactDir  string
	OpenSCADPath string
	PipelinePath string

	MinIO   MinIOConfig
	Tracing TracingConfig
}

// Load reads the service configuration from the environment.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 30),
		BodyLimitMB:  getEnvAsInt("BODY_LIMIT_MB", 16),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"*"}),

		DBPath:       getEnv("MODELER_DB_PATH", "data/db/modeler.db"),
		ArtifactDir:  getEnv("ARTIFACT_DIR", "data/artifacts"),
		OpenSCADPath: getEnv("OPENSCAD_PATH", "openscad"),
		PipelinePath: getEnv("PIPELINE_CONFIG", ""),

		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "plan-models"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},

		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Protocol:    getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "plan-modeler"),
			SampleRatio: getEnvAsFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma separated value and drops empty items.
func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
