package vectorstore

import (
	"fmt"
	"os"
	"strconv"
)

// Backend selects which Store implementation is active.
type Backend string

const (
	BackendQdrant Backend = "qdrant"
	BackendMemory Backend = "memory"
)

// Config configures vector store backend selection. Loaded from
// environment variables for the same reason pkg/database's and
// pkg/tenantstore's connection settings are: storage topology is
// operational, not tenant-facing policy, so it stays out of the YAML
// pkg/config tree.
type Config struct {
	Backend Backend

	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantUseTLS     bool
	CollectionName   string
	VectorSize       int
	DistanceIsCosine bool
}

// LoadConfigFromEnv reads VECTOR_STORE_BACKEND (default "memory"),
// QDRANT_HOST (default "localhost"), QDRANT_PORT (default 6334),
// QDRANT_API_KEY, QDRANT_USE_TLS (default false), VECTOR_COLLECTION_NAME
// (default "integrated_objects"), VECTOR_SIZE (default 1536, matching
// OpenAI's text-embedding-3-small dimensionality).
func LoadConfigFromEnv() (Config, error) {
	backend := Backend(getEnvOrDefault("VECTOR_STORE_BACKEND", string(BackendMemory)))

	port, err := strconv.Atoi(getEnvOrDefault("QDRANT_PORT", "6334"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid QDRANT_PORT: %w", err)
	}

	vectorSize, err := strconv.Atoi(getEnvOrDefault("VECTOR_SIZE", "1536"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid VECTOR_SIZE: %w", err)
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid QDRANT_USE_TLS: %w", err)
	}

	cfg := Config{
		Backend:          backend,
		QdrantHost:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		QdrantPort:       port,
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantUseTLS:     useTLS,
		CollectionName:   getEnvOrDefault("VECTOR_COLLECTION_NAME", "integrated_objects"),
		VectorSize:       vectorSize,
		DistanceIsCosine: true,
	}

	switch backend {
	case BackendQdrant, BackendMemory:
	default:
		return Config{}, fmt.Errorf("invalid VECTOR_STORE_BACKEND %q: must be %q or %q", backend, BackendQdrant, BackendMemory)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
