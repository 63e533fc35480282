// Package pipeline provides document pipeline configuration options.
package pipeline

import (
	"fmt"

	"github.com/kart-io/agent-studio/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains document ingestion and retrieval pipeline configuration.
type Options struct {
	// UploadDir is the directory where uploaded documents are staged.
	UploadDir string `json:"upload-dir" mapstructure:"upload-dir"`

	// MaxBuildAttempts bounds the adaptive chunk-resize retry loop.
	MaxBuildAttempts int `json:"max-build-attempts" mapstructure:"max-build-attempts"`

	// IngestWorkers caps concurrent document ingestions.
	IngestWorkers int `json:"ingest-workers" mapstructure:"ingest-workers"`

	// TopK is the number of excerpts retrieved for answering.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ContextTopK is the number of excerpts returned by raw context dumps.
	ContextTopK int `json:"context-top-k" mapstructure:"context-top-k"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		UploadDir:        "data/uploads",
		MaxBuildAttempts: 5,
		IngestWorkers:    4,
		TopK:             3,
		ContextTopK:      5,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.UploadDir, options.Join(prefixes...)+"pipeline.upload-dir", o.UploadDir, "Directory where uploaded documents are staged.")
	fs.IntVar(&o.MaxBuildAttempts, options.Join(prefixes...)+"pipeline.max-build-attempts", o.MaxBuildAttempts, "Maximum index build attempts per document.")
	fs.IntVar(&o.IngestWorkers, options.Join(prefixes...)+"pipeline.ingest-workers", o.IngestWorkers, "Maximum concurrent document ingestions.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"pipeline.top-k", o.TopK, "Number of excerpts retrieved for answering.")
	fs.IntVar(&o.ContextTopK, options.Join(prefixes...)+"pipeline.context-top-k", o.ContextTopK, "Number of excerpts for raw context dumps.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.UploadDir == "" {
		errs = append(errs, fmt.Errorf("pipeline.upload-dir is required"))
	}
	if o.MaxBuildAttempts <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.max-build-attempts must be positive"))
	}
	if o.IngestWorkers <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.ingest-workers must be positive"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.top-k must be positive"))
	}
	if o.ContextTopK <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.context-top-k must be positive"))
	}
	return errs
}
