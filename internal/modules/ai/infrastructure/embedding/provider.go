package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ChatBooks/internal/config"

	arkEmbed "github.com/cloudwego/eino-ext/components/embedding/ark"
	dashscopeEmbed "github.com/cloudwego/eino-ext/components/embedding/dashscope"
	ollamaEmbed "github.com/cloudwego/eino-ext/components/embedding/ollama"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

type EmbedderMeta struct {
	Provider string
	Model    string
	Dim      int
}

// remote 远程 embedding 服务的连接参数（已合并环境变量）
type remote struct {
	apiKey  string
	model   string
	baseURL string
	dim     int
	timeout time.Duration
	byAzure bool
	version string
}

type remoteProvider struct {
	keyEnv, modelEnv, urlEnv string
	// keyless 本地服务不需要 apiKey
	keyless      bool
	defaultURL   string
	defaultModel string
	build        func(ctx context.Context, r remote) (embedding.Embedder, error)
}

var remoteProviders = map[string]remoteProvider{
	"ollama": {
		modelEnv: "OLLAMA_EMBED_MODEL", urlEnv: "OLLAMA_HOST",
		keyless:      true,
		defaultURL:   "http://localhost:11434",
		defaultModel: "nomic-embed-text",
		build: func(ctx context.Context, r remote) (embedding.Embedder, error) {
			return ollamaEmbed.NewEmbedder(ctx, &ollamaEmbed.EmbeddingConfig{
				BaseURL: r.baseURL,
				Model:   r.model,
				Timeout: r.timeout,
			})
		},
	},
	"openai": {
		keyEnv: "OPENAI_API_KEY", modelEnv: "OPENAI_EMBED_MODEL", urlEnv: "OPENAI_BASE_URL",
		build: func(ctx context.Context, r remote) (embedding.Embedder, error) {
			return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
				APIKey:     r.apiKey,
				Model:      r.model,
				BaseURL:    r.baseURL,
				Timeout:    r.timeout,
				ByAzure:    r.byAzure,
				APIVersion: r.version,
				Dimensions: &r.dim,
			})
		},
	},
	"ark": {
		keyEnv: "ARK_API_KEY", modelEnv: "ARK_EMBED_MODEL", urlEnv: "ARK_BASE_URL",
		build: func(ctx context.Context, r remote) (embedding.Embedder, error) {
			return arkEmbed.NewEmbedder(ctx, &arkEmbed.EmbeddingConfig{
				APIKey:  r.apiKey,
				Model:   r.model,
				BaseURL: r.baseURL,
			})
		},
	},
	"dashscope": {
		keyEnv: "DASHSCOPE_API_KEY", modelEnv: "DASHSCOPE_EMBED_MODEL",
		build: func(ctx context.Context, r remote) (embedding.Embedder, error) {
			return dashscopeEmbed.NewEmbedder(ctx, &dashscopeEmbed.EmbeddingConfig{
				APIKey:     r.apiKey,
				Model:      r.model,
				Dimensions: &r.dim,
			})
		},
	},
}

// NewEmbedderFromConfig 按 aiConfig.embedding.provider 创建 Embedder
//
// hash（未配置时）完全离线，只按词面匹配；ollama 走本地模型；云端 provider 需要 apiKey 与 model，
// 可从环境变量补齐。返回的向量维度和 dimensions 不一致时报错，片段按 batchSize 分批请求。
func NewEmbedderFromConfig(ctx context.Context, conf *config.Config) (embedding.Embedder, EmbedderMeta, error) {
	if conf == nil {
		return nil, EmbedderMeta{}, errors.New("nil config")
	}
	ec := conf.AIConfig.Embedding
	provider := strings.ToLower(strings.TrimSpace(ec.Provider))
	if provider == "" || provider == "hash" || provider == "mock" {
		e := NewHashEmbedder(ec.Dimensions)
		return NewBatchEmbedder(e, ec.BatchSize), EmbedderMeta{Provider: "hash", Model: "feature-hash", Dim: e.Dim}, nil
	}

	rp, ok := remoteProviders[provider]
	if !ok {
		return nil, EmbedderMeta{}, fmt.Errorf("unknown embedding provider: %s", provider)
	}
	r := remote{
		apiKey:  orEnv(ec.APIKey, rp.keyEnv),
		model:   orEnv(ec.Model, rp.modelEnv),
		baseURL: orEnv(ec.BaseURL, rp.urlEnv),
		dim:     ec.Dimensions,
		timeout: 30 * time.Second,
		byAzure: ec.ByAzure,
		version: ec.AzureAPIVersion,
	}
	if ec.TimeoutSeconds > 0 {
		r.timeout = time.Duration(ec.TimeoutSeconds) * time.Second
	}
	if r.baseURL == "" {
		r.baseURL = rp.defaultURL
	}
	if r.model == "" {
		r.model = rp.defaultModel
	}
	if r.model == "" || (r.apiKey == "" && !rp.keyless) {
		return nil, EmbedderMeta{}, fmt.Errorf("%s embedding missing apiKey/model", provider)
	}
	if r.dim <= 0 {
		return nil, EmbedderMeta{}, fmt.Errorf("%s embedding needs dimensions > 0", provider)
	}
	em, err := rp.build(ctx, r)
	if err != nil {
		return nil, EmbedderMeta{}, fmt.Errorf("%s embedding: %w", provider, err)
	}
	guarded := &dimGuard{inner: em, dim: r.dim}
	return NewBatchEmbedder(guarded, ec.BatchSize), EmbedderMeta{Provider: provider, Model: r.model, Dim: r.dim}, nil
}

func orEnv(value, env string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	if env == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(env))
}

// dimGuard 向量库的维度在建库时就固定了
type dimGuard struct {
	inner embedding.Embedder
	dim   int
}

func (g *dimGuard) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	vecs, err := g.inner.EmbedStrings(ctx, texts, opts...)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != g.dim {
			return nil, fmt.Errorf("embedding %d has dim %d, want %d", i, len(v), g.dim)
		}
	}
	return vecs, nil
}
