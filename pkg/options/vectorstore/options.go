// Package vectorstore provides vector store backend configuration options.
package vectorstore

import (
	"fmt"

	"github.com/kart-io/agent-studio/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Supported vector store backends.
const (
	BackendLocal  = "local"
	BackendMilvus = "milvus"
)

// Options contains vector store configuration.
type Options struct {
	// Backend selects the vector store backend (local or milvus).
	Backend string `json:"backend" mapstructure:"backend"`

	// DataDir is the root directory for local collection storage.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Backend:      BackendLocal,
		DataDir:      "data/vectors",
		EmbeddingDim: 768,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, options.Join(prefixes...)+"vectorstore.backend", o.Backend, "Vector store backend (local or milvus).")
	fs.StringVar(&o.DataDir, options.Join(prefixes...)+"vectorstore.data-dir", o.DataDir, "Root directory for local collection storage.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"vectorstore.embedding-dim", o.EmbeddingDim, "Dimension of embedding vectors.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case BackendLocal:
		if o.DataDir == "" {
			errs = append(errs, fmt.Errorf("vectorstore.data-dir is required for local backend"))
		}
	case BackendMilvus:
		// Milvus connection settings are validated by milvus options.
	default:
		errs = append(errs, fmt.Errorf("unsupported vector store backend: %s", o.Backend))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("vectorstore.embedding-dim must be positive"))
	}
	return errs
}
