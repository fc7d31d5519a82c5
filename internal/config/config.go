package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// DefaultConfigPath 默认配置文件路径，可由 --config 或 CHATBOOKS_CONFIG 覆盖
const DefaultConfigPath = "configs/config_local.toml"

type MainConfig struct {
	AppName     string `toml:"appName"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	SSLRedirect bool   `toml:"sslRedirect"`
	CertFile    string `toml:"certFile"`
	KeyFile     string `toml:"keyFile"`

	// 允许跨域访问 HTTP 接口和 WebSocket 的来源；为空时只放行本机
	AllowOrigins []string `toml:"allowOrigins"`
}

// Origins 返回生效的跨域白名单
func (m MainConfig) Origins() []string {
	if len(m.AllowOrigins) > 0 {
		return m.AllowOrigins
	}
	hosts := []string{"localhost", "127.0.0.1"}
	if h := strings.TrimSpace(m.Host); h != "" && h != "0.0.0.0" && h != "::" && h != "localhost" && h != "127.0.0.1" {
		hosts = append(hosts, h)
	}
	out := make([]string, 0, len(hosts)*2)
	for _, h := range hosts {
		out = append(out, fmt.Sprintf("http://%s:%d", h, m.Port), fmt.Sprintf("https://%s:%d", h, m.Port))
	}
	return out
}

type LogConfig struct {
	LogPath string `toml:"logPath"`
	Level   string `toml:"level"`
	Console bool   `toml:"console"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

// LibraryConfig 书库目录：待导入的书 + 已处理标记
type LibraryConfig struct {
	BooksDir      string `toml:"booksDir"`
	ProcessedDir  string `toml:"processedDir"`
	ScanOnStartup bool   `toml:"scanOnStartup"`
	Watch         bool   `toml:"watch"`
}

// VectorStoreConfig 向量库后端选择：local / milvus / qdrant
type VectorStoreConfig struct {
	Backend         string `toml:"backend"`
	BooksCollection string `toml:"booksCollection"`
	QACollection    string `toml:"qaCollection"`
}

// LocalStoreConfig 本地 sqlite 向量库，每个集合一个目录
type LocalStoreConfig struct {
	BooksDir string `toml:"booksDir"`
	QADir    string `toml:"qaDir"`
}

type MilvusConfig struct {
	Address  string `toml:"address"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	DBName   string `toml:"dbName"`
}

type QdrantConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

// Enabled 未配置 host 时书目走内存仓储
func (m MysqlConfig) Enabled() bool {
	return strings.TrimSpace(m.Host) != ""
}

type KafkaConfig struct {
	Brokers         []string `toml:"brokers"`
	ClientID        string   `toml:"clientID"`
	IngestTopic     string   `toml:"ingestTopic"`
	IngestedTopic   string   `toml:"ingestedTopic"`
	ConsumerGroupID string   `toml:"consumerGroupID"`
	Partitions      int32    `toml:"partitions"`
	Replication     int16    `toml:"replication"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type AIEmbeddingConfig struct {
	Provider        string `toml:"provider"`
	APIKey          string `toml:"apiKey"`
	BaseURL         string `toml:"baseURL"`
	Model           string `toml:"model"`
	Dimensions      int    `toml:"dimensions"`
	BatchSize       int    `toml:"batchSize"`
	TimeoutSeconds  int    `toml:"timeoutSeconds"`
	ByAzure         bool   `toml:"byAzure"`
	AzureAPIVersion string `toml:"azureApiVersion"`
}

type AIChatModelConfig struct {
	Provider        string `toml:"provider"`
	APIKey          string `toml:"apiKey"`
	AccessKey       string `toml:"accessKey"`
	SecretKey       string `toml:"secretKey"`
	BaseURL         string `toml:"baseURL"`
	Region          string `toml:"region"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeoutSeconds"`
	RetryTimes      int    `toml:"retryTimes"`
	ByAzure         bool   `toml:"byAzure"`
	AzureAPIVersion string `toml:"azureApiVersion"`
}

// AISpeechConfig 语音识别 / 合成（OpenAI 兼容接口）
type AISpeechConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"apiKey"`
	BaseURL        string `toml:"baseURL"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TTSModel       string `toml:"ttsModel"`
	TTSVoice       string `toml:"ttsVoice"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
}

type AIRetrievalConfig struct {
	TopK           int     `toml:"topK"`
	ScoreThreshold float64 `toml:"scoreThreshold"`
}

type AIChunkingConfig struct {
	ChunkSize    int `toml:"chunkSize"`
	ChunkOverlap int `toml:"chunkOverlap"`
}

type AIConfig struct {
	Embedding AIEmbeddingConfig `toml:"embedding"`
	ChatModel AIChatModelConfig `toml:"chatModel"`
	Speech    AISpeechConfig    `toml:"speech"`
	Retrieval AIRetrievalConfig `toml:"retrieval"`
	Chunking  AIChunkingConfig  `toml:"chunking"`
}

// MCPConfig 内置 MCP Server 配置
type MCPConfig struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type Config struct {
	MainConfig        `toml:"mainConfig"`
	LogConfig         `toml:"logConfig"`
	JwtConfig         `toml:"jwtConfig"`
	LibraryConfig     `toml:"library"`
	VectorStoreConfig `toml:"vectorStore"`
	LocalStoreConfig  `toml:"localStore"`
	MilvusConfig      `toml:"milvusConfig"`
	QdrantConfig      `toml:"qdrantConfig"`
	MysqlConfig       `toml:"mysqlConfig"`
	KafkaConfig       `toml:"kafkaConfig"`
	AIConfig          `toml:"aiConfig"`
	MCPConfig         `toml:"mcpConfig"`
}

var (
	mu     sync.RWMutex
	config *Config
)

// Load 读取 toml 文件并补齐默认值；文件不存在时使用全部默认值
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("CHATBOOKS_CONFIG"))
	}
	if path == "" {
		path = DefaultConfigPath
	}

	c := new(Config)
	if _, err := toml.DecodeFile(path, c); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Decode 从字符串解析配置（测试和内嵌配置用）
func Decode(data string) (*Config, error) {
	c := new(Config)
	if _, err := toml.Decode(data, c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default 返回纯默认配置
func Default() *Config {
	c := new(Config)
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "ChatBooks"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "127.0.0.1"
	}
	if c.MainConfig.Port <= 0 {
		c.MainConfig.Port = 8501
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.JwtConfig.ExpireHours <= 0 {
		c.JwtConfig.ExpireHours = 24
	}
	if c.JwtConfig.Issuer == "" {
		c.JwtConfig.Issuer = c.AppName
	}

	if c.LibraryConfig.BooksDir == "" {
		c.LibraryConfig.BooksDir = "books"
	}
	if c.LibraryConfig.ProcessedDir == "" {
		c.LibraryConfig.ProcessedDir = "books_processed"
	}

	if c.VectorStoreConfig.Backend == "" {
		c.VectorStoreConfig.Backend = "local"
	}
	c.VectorStoreConfig.Backend = strings.ToLower(strings.TrimSpace(c.VectorStoreConfig.Backend))
	if c.BooksCollection == "" {
		c.BooksCollection = "books"
	}
	if c.QACollection == "" {
		c.QACollection = "qa"
	}
	if c.LocalStoreConfig.BooksDir == "" {
		c.LocalStoreConfig.BooksDir = "vector_books_db"
	}
	if c.LocalStoreConfig.QADir == "" {
		c.LocalStoreConfig.QADir = "vector_qa_db"
	}
	if c.MilvusConfig.DBName == "" {
		c.MilvusConfig.DBName = "chatbooks"
	}
	if c.QdrantConfig.Port <= 0 {
		c.QdrantConfig.Port = 6334
	}
	if c.MysqlConfig.Port <= 0 {
		c.MysqlConfig.Port = 3306
	}
	if c.MysqlConfig.DatabaseName == "" {
		c.MysqlConfig.DatabaseName = "chatbooks"
	}

	if c.KafkaConfig.ClientID == "" {
		c.KafkaConfig.ClientID = "chatbooks"
	}
	if c.KafkaConfig.IngestTopic == "" {
		c.KafkaConfig.IngestTopic = "chatbooks.ingest"
	}
	if c.KafkaConfig.IngestedTopic == "" {
		c.KafkaConfig.IngestedTopic = "chatbooks.ingested"
	}
	if c.KafkaConfig.ConsumerGroupID == "" {
		c.KafkaConfig.ConsumerGroupID = "chatbooks-ingest"
	}

	if c.AIConfig.Embedding.Provider == "" {
		c.AIConfig.Embedding.Provider = "hash"
	}
	if c.AIConfig.Embedding.Dimensions <= 0 {
		c.AIConfig.Embedding.Dimensions = 384
	}
	if c.AIConfig.Embedding.BatchSize <= 0 {
		c.AIConfig.Embedding.BatchSize = 64
	}
	if c.AIConfig.ChatModel.Provider == "" {
		c.AIConfig.ChatModel.Provider = "ollama"
	}
	if c.AIConfig.Speech.Model == "" {
		c.AIConfig.Speech.Model = "whisper-1"
	}
	if c.AIConfig.Retrieval.TopK <= 0 {
		c.AIConfig.Retrieval.TopK = 10
	}
	if c.AIConfig.Chunking.ChunkSize <= 0 {
		c.AIConfig.Chunking.ChunkSize = 1024
	}
	if c.AIConfig.Chunking.ChunkOverlap <= 0 {
		c.AIConfig.Chunking.ChunkOverlap = 100
	}

	if c.MCPConfig.Name == "" {
		c.MCPConfig.Name = "chatbooks"
	}
	if c.MCPConfig.Version == "" {
		c.MCPConfig.Version = "1.0.0"
	}
}

// Validate 校验互相依赖的配置项
func (c *Config) Validate() error {
	switch c.VectorStoreConfig.Backend {
	case "local", "milvus", "qdrant":
	default:
		return fmt.Errorf("unknown vector store backend: %s", c.VectorStoreConfig.Backend)
	}
	if c.VectorStoreConfig.Backend == "milvus" && strings.TrimSpace(c.MilvusConfig.Address) == "" {
		return errors.New("milvus backend requires milvusConfig.address")
	}
	if c.VectorStoreConfig.Backend == "qdrant" && strings.TrimSpace(c.QdrantConfig.Host) == "" {
		return errors.New("qdrant backend requires qdrantConfig.host")
	}
	if c.AIConfig.Chunking.ChunkOverlap >= c.AIConfig.Chunking.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			c.AIConfig.Chunking.ChunkOverlap, c.AIConfig.Chunking.ChunkSize)
	}
	for _, o := range c.MainConfig.AllowOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("allowed origin %q must start with http:// or https://", o)
		}
	}
	if c.AIConfig.Retrieval.ScoreThreshold < 0 || c.AIConfig.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("score threshold %.2f out of range [0,1]", c.AIConfig.Retrieval.ScoreThreshold)
	}
	return nil
}

// SetConfig 替换全局配置（启动时由 cmd 调用）
func SetConfig(c *Config) {
	mu.Lock()
	config = c
	mu.Unlock()
}

// GetConfig 返回全局配置；未初始化时按默认路径懒加载
func GetConfig() *Config {
	mu.RLock()
	c := config
	mu.RUnlock()
	if c != nil {
		return c
	}

	loaded, err := Load("")
	if err != nil {
		loaded = Default()
	}
	mu.Lock()
	if config == nil {
		config = loaded
	}
	c = config
	mu.Unlock()
	return c
}
