package config

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	StorageBackendSpaces = "spaces"
	StorageBackendLocal  = "local"

	OCREngineTesseract = "tesseract"
	OCREngineGosseract = "gosseract"
)

// DefaultHFAPIURL is the zero-shot classification endpoint used when HF_API_URL is unset.
const DefaultHFAPIURL = "https://h5juq0gnjnavay71.us-east-1.aws.endpoints.huggingface.cloud"

type Config struct {
	Host string
	Port string
	Env  string

	// Classifier
	HFAPIURL           string
	HFAPIToken         string
	HFTimeout          time.Duration
	HFRetryMax         int
	HFRetryWaitMin     time.Duration
	HFRetryWaitMax     time.Duration
	ClassifierLabels   []string
	ClassifierMaxChars int

	// Storage
	StorageBackend  string
	SpacesEndpoint  string
	SpacesKey       string
	SpacesSecret    string
	SpacesRegion    string
	SpacesPathStyle bool
	SpacesACL       string
	BucketName      string
	LocalStorageDir string

	// OCR
	OCREngine        string
	TesseractPath    string
	PdftoppmPath     string
	OCRLanguages     []string
	PDFDPI           int
	PDFMaxPages      int
	OCRMaxConcurrent int

	// HTTP
	MaxUploadSize      datasize.ByteSize
	RequestTimeout     time.Duration
	CORSAllowedOrigins []string
	JwtSecret          string

	// OpenTelemetry
	OtelEnabled     bool
	OtelEndpoint    string
	OtelServiceName string
	OtelInsecure    bool
	Version         string
}

// Load loads configuration from environment variables
// Automatically loads .env file if present
func Load() *Config {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnv("PORT", "10000"),
		Env:  getEnv("ENV", "production"),

		HFAPIURL:       getEnv("HF_API_URL", DefaultHFAPIURL),
		HFAPIToken:     getEnv("HF_API_TOKEN", ""),
		HFTimeout:      getEnvDuration("HF_TIMEOUT", 10*time.Second),
		HFRetryMax:     getEnvInt("HF_RETRY_MAX", 2),
		HFRetryWaitMin: getEnvDuration("HF_RETRY_WAIT_MIN", 4*time.Second),
		HFRetryWaitMax: getEnvDuration("HF_RETRY_WAIT_MAX", 10*time.Second),
		ClassifierLabels: getEnvList("CLASSIFIER_LABELS", []string{
			"ultrasound report",
			"blood test results",
			"urine analysis",
			"prenatal screening",
		}),
		ClassifierMaxChars: getEnvInt("CLASSIFIER_MAX_CHARS", 4000),

		StorageBackend:  getEnv("STORAGE_BACKEND", StorageBackendSpaces),
		SpacesEndpoint:  getEnv("SPACES_ENDPOINT", ""),
		SpacesKey:       getEnv("DO_SPACES_KEY", ""),
		SpacesSecret:    getEnv("DO_SPACES_SECRET", ""),
		SpacesRegion:    getEnv("SPACES_REGION", "us-east-1"),
		SpacesPathStyle: getEnvBool("SPACES_PATH_STYLE", false),
		SpacesACL:       getEnv("SPACES_ACL", "private"),
		BucketName:      getEnv("BUCKET_NAME", ""),
		LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "/var/lib/docclassify"),

		OCREngine:        getEnv("OCR_ENGINE", OCREngineTesseract),
		TesseractPath:    getEnv("TESSERACT_PATH", "tesseract"),
		PdftoppmPath:     getEnv("PDFTOPPM_PATH", "pdftoppm"),
		OCRLanguages:     getEnvList("OCR_LANGUAGES", []string{"eng"}),
		PDFDPI:           getEnvInt("PDF_DPI", 200),
		PDFMaxPages:      getEnvInt("PDF_MAX_PAGES", 50),
		OCRMaxConcurrent: getEnvInt("OCR_MAX_CONCURRENT", runtime.NumCPU()),

		MaxUploadSize:      getEnvSize("MAX_UPLOAD_SIZE", 25*datasize.MB),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 120*time.Second),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		JwtSecret:          getEnv("JWT_SECRET", ""),

		OtelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OtelEndpoint:    getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName: getEnv("OTEL_SERVICE_NAME", "docclassify"),
		OtelInsecure:    getEnvBool("OTEL_INSECURE", true),
		Version:         getEnv("VERSION", "dev"),
	}

	return cfg
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}

	switch c.StorageBackend {
	case StorageBackendSpaces:
		required := map[string]string{
			"SPACES_ENDPOINT":  c.SpacesEndpoint,
			"BUCKET_NAME":      c.BucketName,
			"DO_SPACES_KEY":    c.SpacesKey,
			"DO_SPACES_SECRET": c.SpacesSecret,
		}
		missing := lo.Keys(lo.PickBy(required, func(_ string, value string) bool {
			return value == ""
		}))
		if len(missing) > 0 {
			sort.Strings(missing)
			return fmt.Errorf("spaces storage requires %s", strings.Join(missing, ", "))
		}
	case StorageBackendLocal:
		if c.LocalStorageDir == "" {
			return fmt.Errorf("local storage requires LOCAL_STORAGE_DIR")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	if !lo.Contains([]string{OCREngineTesseract, OCREngineGosseract}, c.OCREngine) {
		return fmt.Errorf("unknown OCR engine %q", c.OCREngine)
	}
	if len(c.ClassifierLabels) == 0 {
		return fmt.Errorf("CLASSIFIER_LABELS must not be empty")
	}
	if c.PDFDPI <= 0 || c.PDFMaxPages <= 0 || c.OCRMaxConcurrent <= 0 {
		return fmt.Errorf("PDF_DPI, PDF_MAX_PAGES and OCR_MAX_CONCURRENT must be positive")
	}
	if c.MaxUploadSize == 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSize(key string, defaultValue datasize.ByteSize) datasize.ByteSize {
	if value := os.Getenv(key); value != "" {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(value)); err == nil {
			return size
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	items := lo.Compact(lo.Map(strings.Split(value, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
