// Package studio assembles the agent studio server.
package studio

import (
	"github.com/kart-io/agent-studio/pkg/app"
	cacheopts "github.com/kart-io/agent-studio/pkg/options/cache"
	dbopts "github.com/kart-io/agent-studio/pkg/options/database"
	httpopts "github.com/kart-io/agent-studio/pkg/options/http"
	llmopts "github.com/kart-io/agent-studio/pkg/options/llm"
	logopts "github.com/kart-io/agent-studio/pkg/options/logger"
	milvusopts "github.com/kart-io/agent-studio/pkg/options/milvus"
	pipelineopts "github.com/kart-io/agent-studio/pkg/options/pipeline"
	vsopts "github.com/kart-io/agent-studio/pkg/options/vectorstore"
)

// Options contains all agent studio configuration.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Database contains relational database configuration.
	Database *dbopts.Options `json:"database" mapstructure:"database"`

	// VectorStore contains vector store configuration.
	VectorStore *vsopts.Options `json:"vectorstore" mapstructure:"vectorstore"`

	// Milvus configures the milvus backend when selected.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// Pipeline contains document pipeline configuration.
	Pipeline *pipelineopts.Options `json:"pipeline" mapstructure:"pipeline"`

	// Cache contains query cache configuration.
	Cache *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		HTTP:        httpopts.NewOptions(),
		Log:         logopts.NewOptions(),
		Database:    dbopts.NewOptions(),
		VectorStore: vsopts.NewOptions(),
		Milvus:      milvusopts.NewOptions(),
		Embedding:   llmopts.NewEmbeddingOptions(),
		Chat:        llmopts.NewChatOptions(),
		Pipeline:    pipelineopts.NewOptions(),
		Cache:       cacheopts.NewOptions(),
	}
}

// Flags returns the flags grouped into named flag sets.
func (o *Options) Flags() app.NamedFlagSets {
	fss := app.NamedFlagSets{}

	o.HTTP.AddFlags(fss.FlagSet("http"))
	o.Log.AddFlags(fss.FlagSet("log"))
	o.Database.AddFlags(fss.FlagSet("database"))
	o.VectorStore.AddFlags(fss.FlagSet("vectorstore"))
	o.Milvus.AddFlags(fss.FlagSet("milvus"))
	o.Embedding.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.Chat.AddFlags(fss.FlagSet("chat"), "chat")
	o.Pipeline.AddFlags(fss.FlagSet("pipeline"))
	o.Cache.AddFlags(fss.FlagSet("cache"))

	return fss
}

// Complete completes all options.
func (o *Options) Complete() error {
	if err := o.HTTP.Complete(); err != nil {
		return err
	}
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Database.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	if err := o.Chat.Complete(); err != nil {
		return err
	}
	return o.Cache.Complete()
}

// Validate validates all options.
func (o *Options) Validate() error {
	if err := o.Log.Validate(); err != nil {
		return err
	}
	if err := o.HTTP.Validate(); err != nil {
		return err
	}
	for _, errs := range [][]error{
		o.Database.Validate(),
		o.VectorStore.Validate(),
		o.Embedding.Validate(),
		o.Chat.Validate(),
		o.Pipeline.Validate(),
		o.Cache.Validate(),
	} {
		if len(errs) > 0 {
			return errs[0]
		}
	}
	if o.VectorStore.Backend == vsopts.BackendMilvus {
		if errs := o.Milvus.Validate(); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}
