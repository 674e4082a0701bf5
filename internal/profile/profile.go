package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where civiclens stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Embedding configuration
	EmbeddingProvider string // CIVICLENS_EMBEDDING_PROVIDER (default: openai)
	EmbeddingAPIKey   string // CIVICLENS_EMBEDDING_API_KEY
	EmbeddingBaseURL  string // CIVICLENS_EMBEDDING_BASE_URL
	EmbeddingModel    string // CIVICLENS_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingDims     int    // CIVICLENS_EMBEDDING_DIMENSIONS (default: 1536)
	EmbeddingVersion  int    // CIVICLENS_EMBEDDING_VERSION (default: 1)

	// Duplicate detection tuning
	DedupThreshold    float64 // CIVICLENS_DEDUP_THRESHOLD (default: 0.82)
	DedupMaxMatches   int     // CIVICLENS_DEDUP_MAX_MATCHES (default: 5)
	DedupScanLimit    int     // CIVICLENS_DEDUP_SCAN_LIMIT (default: 1000)
	DedupRecencyMonths int    // CIVICLENS_DEDUP_RECENCY_MONTHS (default: 12)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingConfigured returns true if an embedding provider can be reached.
func (p *Profile) IsEmbeddingConfigured() bool {
	return p.EmbeddingAPIKey != "" || p.EmbeddingBaseURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer environment variable", "key", key, "value", raw)
		return defaultValue
	}
	return value
}

func getFloatEnv(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("invalid float environment variable", "key", key, "value", raw)
		return defaultValue
	}
	return value
}

// FromEnv loads configuration from CIVICLENS_* environment variables.
func (p *Profile) FromEnv() {
	p.EmbeddingProvider = getEnvOrDefault("CIVICLENS_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingAPIKey = os.Getenv("CIVICLENS_EMBEDDING_API_KEY")
	p.EmbeddingBaseURL = os.Getenv("CIVICLENS_EMBEDDING_BASE_URL")
	p.EmbeddingModel = getEnvOrDefault("CIVICLENS_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingDims = getIntEnv("CIVICLENS_EMBEDDING_DIMENSIONS", 1536)
	p.EmbeddingVersion = getIntEnv("CIVICLENS_EMBEDDING_VERSION", 1)

	p.DedupThreshold = getFloatEnv("CIVICLENS_DEDUP_THRESHOLD", 0.82)
	p.DedupMaxMatches = getIntEnv("CIVICLENS_DEDUP_MAX_MATCHES", 5)
	p.DedupScanLimit = getIntEnv("CIVICLENS_DEDUP_SCAN_LIMIT", 1000)
	p.DedupRecencyMonths = getIntEnv("CIVICLENS_DEDUP_RECENCY_MONTHS", 12)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/civiclens"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("civiclens_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if p.EmbeddingDims <= 0 {
		return errors.Errorf("embedding dimensions must be positive, got %d", p.EmbeddingDims)
	}
	if p.DedupThreshold < 0 || p.DedupThreshold > 1 {
		return errors.Errorf("duplicate threshold must be in [0,1], got %f", p.DedupThreshold)
	}

	return nil
}
