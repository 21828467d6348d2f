package vectorstore

import "fmt"

// Config holds configuration for vector store providers.
type Config struct {
	// Provider specifies which vector store to use
	// Supported values: "memory", "firestore"
	Provider string `yaml:"provider" json:"provider"`

	// EmbeddingDimensions is the size of the embedding vectors
	// Common values: 384, 768, 1024, 1536, 2048
	EmbeddingDimensions int `yaml:"embedding_dimensions" json:"embedding_dimensions"`

	// DefaultTopK is the default number of results to return
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k"`

	// DefaultDistanceMetric is the default similarity metric
	// Values: "cosine", "euclidean", "dot_product"
	DefaultDistanceMetric string `yaml:"default_distance_metric" json:"default_distance_metric"`

	// Firestore-specific configuration
	Firestore *FirestoreConfig `yaml:"firestore,omitempty" json:"firestore,omitempty"`

	// Memory-specific configuration (for testing)
	Memory *MemoryConfig `yaml:"memory,omitempty" json:"memory,omitempty"`
}

// FirestoreConfig contains Firestore-specific settings.
type FirestoreConfig struct {
	// ProjectID is the Google Cloud project ID
	ProjectID string `yaml:"project_id" json:"project_id"`

	// Collection is the Firestore collection name for documents
	Collection string `yaml:"collection" json:"collection"`

	// CredentialsFile is the path to the service account key JSON file
	// Optional: uses Application Default Credentials if not specified
	CredentialsFile string `yaml:"credentials_file,omitempty" json:"credentials_file,omitempty"`

	// DatabaseID is the Firestore database ID (default: "(default)")
	DatabaseID string `yaml:"database_id,omitempty" json:"database_id,omitempty"`
}

// MemoryConfig contains in-memory store settings (for testing).
type MemoryConfig struct {
	// MaxDocuments is the maximum number of documents to store (default: 10000)
	MaxDocuments int `yaml:"max_documents" json:"max_documents"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider must be specified")
	}

	// Validate embedding dimensions
	if c.EmbeddingDimensions < 1 || c.EmbeddingDimensions > 4096 {
		return fmt.Errorf("embedding_dimensions must be between 1 and 4096, got %d", c.EmbeddingDimensions)
	}

	// Set defaults
	if c.DefaultTopK == 0 {
		c.DefaultTopK = 10
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > 1000 {
		return fmt.Errorf("default_top_k must be between 1 and 1000, got %d", c.DefaultTopK)
	}

	if c.DefaultDistanceMetric == "" {
		c.DefaultDistanceMetric = string(DistanceMetricCosine)
	}

	// Validate provider-specific configuration
	switch c.Provider {
	case "firestore":
		if c.Firestore == nil {
			return fmt.Errorf("firestore configuration is required when provider is 'firestore'")
		}
		return c.Firestore.Validate()
	case "memory":
		if c.Memory == nil {
			c.Memory = &MemoryConfig{MaxDocuments: 10000}
		}
		return c.Memory.Validate()
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
}

// Validate checks if Firestore configuration is valid.
func (fc *FirestoreConfig) Validate() error {
	if fc.ProjectID == "" {
		return fmt.Errorf("firestore project_id is required")
	}
	if fc.Collection == "" {
		return fmt.Errorf("firestore collection is required")
	}
	return nil
}

// Validate checks if Memory configuration is valid.
func (mc *MemoryConfig) Validate() error {
	if mc.MaxDocuments < 1 {
		mc.MaxDocuments = 10000
	}
	return nil
}
