package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ChatBooks/internal/config"

	arkModel "github.com/cloudwego/eino-ext/components/model/ark"
	ollamaModel "github.com/cloudwego/eino-ext/components/model/ollama"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ErrChatModelDisabled provider 配成 disabled / none
var ErrChatModelDisabled = errors.New("chat model provider disabled")

type ChatModelMeta struct {
	Provider string
	Model    string
}

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2"
)

// settings 配置项和环境变量合并之后的结果
type settings struct {
	apiKey     string
	accessKey  string
	secretKey  string
	baseURL    string
	region     string
	model      string
	timeout    time.Duration
	retryTimes int
	byAzure    bool
	apiVersion string
}

// envNames 配置为空时依次读取的环境变量
type envNames struct {
	apiKey, accessKey, secretKey, baseURL, region, model string
}

type builder struct {
	env            envNames
	defaultTimeout time.Duration
	build          func(ctx context.Context, s settings) (model.BaseChatModel, error)
}

var builders = map[string]builder{
	"ollama": {
		env:            envNames{baseURL: "OLLAMA_HOST", model: "OLLAMA_MODEL"},
		defaultTimeout: 5 * time.Minute,
		build:          buildOllama,
	},
	"openai": {
		env:            envNames{apiKey: "OPENAI_API_KEY", baseURL: "OPENAI_BASE_URL", model: "OPENAI_MODEL"},
		defaultTimeout: 2 * time.Minute,
		build:          buildOpenAI,
	},
	"ark": {
		env: envNames{
			apiKey: "ARK_API_KEY", accessKey: "ARK_ACCESS_KEY", secretKey: "ARK_SECRET_KEY",
			baseURL: "ARK_BASE_URL", region: "ARK_REGION", model: "ARK_MODEL_ID",
		},
		defaultTimeout: 2 * time.Minute,
		build:          buildArk,
	},
}

// NewChatModelFromConfig 按 aiConfig.chatModel.provider 创建聊天模型；默认 ollama 本地模型
func NewChatModelFromConfig(ctx context.Context, conf *config.Config) (model.BaseChatModel, ChatModelMeta, error) {
	if conf == nil {
		return nil, ChatModelMeta{}, errors.New("nil config")
	}
	cc := conf.AIConfig.ChatModel
	provider := strings.ToLower(strings.TrimSpace(cc.Provider))
	switch provider {
	case "disabled", "none":
		return nil, ChatModelMeta{}, ErrChatModelDisabled
	case "":
		provider = "ollama"
	}

	b, ok := builders[provider]
	if !ok {
		return nil, ChatModelMeta{}, fmt.Errorf("unknown chat model provider: %s", provider)
	}
	s := resolve(cc, b)
	cm, err := b.build(ctx, s)
	if err != nil {
		return nil, ChatModelMeta{}, fmt.Errorf("%s chat model: %w", provider, err)
	}
	return cm, ChatModelMeta{Provider: provider, Model: s.model}, nil
}

func resolve(cc config.AIChatModelConfig, b builder) settings {
	s := settings{
		apiKey:     pick(cc.APIKey, b.env.apiKey),
		accessKey:  pick(cc.AccessKey, b.env.accessKey),
		secretKey:  pick(cc.SecretKey, b.env.secretKey),
		baseURL:    pick(cc.BaseURL, b.env.baseURL),
		region:     pick(cc.Region, b.env.region),
		model:      pick(cc.Model, b.env.model),
		timeout:    b.defaultTimeout,
		retryTimes: 2,
		byAzure:    cc.ByAzure,
		apiVersion: strings.TrimSpace(cc.AzureAPIVersion),
	}
	if cc.TimeoutSeconds > 0 {
		s.timeout = time.Duration(cc.TimeoutSeconds) * time.Second
	}
	if cc.RetryTimes > 0 {
		s.retryTimes = cc.RetryTimes
	}
	return s
}

func pick(value, env string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	if env == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(env))
}

func buildOllama(ctx context.Context, s settings) (model.BaseChatModel, error) {
	if s.baseURL == "" {
		s.baseURL = defaultOllamaBaseURL
	}
	if s.model == "" {
		s.model = defaultOllamaModel
	}
	return ollamaModel.NewChatModel(ctx, &ollamaModel.ChatModelConfig{
		BaseURL: s.baseURL,
		Model:   s.model,
		Timeout: s.timeout,
	})
}

func buildOpenAI(ctx context.Context, s settings) (model.BaseChatModel, error) {
	if s.apiKey == "" || s.model == "" {
		return nil, errors.New("missing apiKey/model")
	}
	return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:     s.apiKey,
		Model:      s.model,
		BaseURL:    s.baseURL,
		ByAzure:    s.byAzure,
		APIVersion: s.apiVersion,
		Timeout:    s.timeout,
	})
}

func buildArk(ctx context.Context, s settings) (model.BaseChatModel, error) {
	if s.apiKey == "" && (s.accessKey == "" || s.secretKey == "") {
		return nil, errors.New("missing apiKey or accessKey/secretKey")
	}
	if s.model == "" {
		return nil, errors.New("missing model")
	}
	return arkModel.NewChatModel(ctx, &arkModel.ChatModelConfig{
		APIKey:     s.apiKey,
		AccessKey:  s.accessKey,
		SecretKey:  s.secretKey,
		Model:      s.model,
		BaseURL:    s.baseURL,
		Region:     s.region,
		Timeout:    &s.timeout,
		RetryTimes: &s.retryTimes,
	})
}
