package initial

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ChatBooks/internal/config"
	aiService "ChatBooks/internal/modules/ai/application/service"
	"ChatBooks/internal/modules/ai/infrastructure/chunking"
	aiEmbedding "ChatBooks/internal/modules/ai/infrastructure/embedding"
	"ChatBooks/internal/modules/ai/infrastructure/llm"
	"ChatBooks/internal/modules/ai/infrastructure/loader"
	"ChatBooks/internal/modules/ai/infrastructure/marker"
	mcpServer "ChatBooks/internal/modules/ai/infrastructure/mcp/server"
	"ChatBooks/internal/modules/ai/infrastructure/mq"
	"ChatBooks/internal/modules/ai/infrastructure/mq/kafka"
	aiPersistence "ChatBooks/internal/modules/ai/infrastructure/persistence"
	"ChatBooks/internal/modules/ai/infrastructure/pipeline"
	"ChatBooks/internal/modules/ai/infrastructure/queue"
	"ChatBooks/internal/modules/ai/infrastructure/speech"
	"ChatBooks/internal/modules/ai/infrastructure/vectordb"
	"ChatBooks/internal/modules/ai/interface/event"
	libraryService "ChatBooks/internal/modules/library/application/service"
	libraryRepo "ChatBooks/internal/modules/library/domain/repository"
	libraryPersistence "ChatBooks/internal/modules/library/infrastructure/persistence"
	"ChatBooks/pkg/ws"
	"ChatBooks/pkg/zlog"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

type options struct {
	chatModel   model.BaseChatModel
	embedder    embedding.Embedder
	embedDim    int
	recognizer  speech.Recognizer
	synthesizer speech.Synthesizer
	noKafka     bool
}

type Option func(*options)

// WithChatModel 替换配置里的聊天模型（测试、命令行调试）
func WithChatModel(m model.BaseChatModel) Option {
	return func(o *options) { o.chatModel = m }
}

// WithEmbedder dim 必须和 embedder 的实际输出一致
func WithEmbedder(e embedding.Embedder, dim int) Option {
	return func(o *options) {
		o.embedder = e
		o.embedDim = dim
	}
}

func WithSpeech(rec speech.Recognizer, syn speech.Synthesizer) Option {
	return func(o *options) {
		o.recognizer = rec
		o.synthesizer = syn
	}
}

// WithoutKafka 一次性命令（ingest / ask）不连 Kafka
func WithoutKafka() Option {
	return func(o *options) { o.noKafka = true }
}

// Container 进程内所有服务的装配结果
type Container struct {
	Conf *config.Config
	Hub  *ws.Hub

	Markers *marker.Store
	Stores  *VectorStores

	IngestSvc    aiService.IngestService
	AssistantSvc aiService.AssistantService
	QASvc        aiService.QAService
	SessionSvc   aiService.SessionService
	VoiceSvc     aiService.VoiceService
	LibrarySvc   libraryService.LibraryService

	// 以下按配置可能为 nil
	MCPServer *server.MCPServer
	Outbox    *queue.OutboxRelay

	publisher mq.Publisher
	closers   []func() error
	wg        sync.WaitGroup
}

// NewContainer 按配置装配存储、流水线和服务
func NewContainer(ctx context.Context, conf *config.Config, opts ...Option) (*Container, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if err := EnsureDataDirs(conf); err != nil {
		return nil, err
	}

	c := &Container{Conf: conf, Hub: ws.NewHub()}
	ok := false
	defer func() {
		if !ok {
			_ = c.Close()
		}
	}()

	embedder, dim := o.embedder, o.embedDim
	if embedder != nil {
		embedder = aiEmbedding.NewBatchEmbedder(embedder, conf.AIConfig.Embedding.BatchSize)
	} else {
		em, meta, err := aiEmbedding.NewEmbedderFromConfig(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		embedder, dim = em, meta.Dim
		zlog.Info("embedder ready", zap.String("provider", meta.Provider), zap.String("model", meta.Model), zap.Int("dim", dim))
	}

	stores, err := NewVectorStores(ctx, conf, dim)
	if err != nil {
		return nil, err
	}
	c.Stores = stores
	c.closers = append(c.closers, stores.Close)

	topK := conf.AIConfig.Retrieval.TopK
	books, err := vectordb.NewEinoVectorStore(stores.Books, embedder, topK)
	if err != nil {
		return nil, err
	}
	qa, err := vectordb.NewEinoVectorStore(stores.QA, embedder, topK)
	if err != nil {
		return nil, err
	}

	ld, err := loader.NewLoader(ctx)
	if err != nil {
		return nil, err
	}
	chunker := chunking.NewChunker(conf.AIConfig.Chunking.ChunkSize, conf.AIConfig.Chunking.ChunkOverlap)
	ingestPipe, err := pipeline.NewIngestPipeline(ld, chunker, embedder, books)
	if err != nil {
		return nil, err
	}

	c.Markers = marker.NewStore(conf.LibraryConfig.ProcessedDir)
	c.IngestSvc = aiService.NewIngestService(ingestPipe, c.Markers)
	c.QASvc = aiService.NewQAService(qa)

	// 聊天模型不可用时仍然可以导入和录入问答
	chatModel := o.chatModel
	if chatModel == nil {
		cm, meta, err := llm.NewChatModelFromConfig(ctx, conf)
		switch {
		case errors.Is(err, llm.ErrChatModelDisabled):
			zlog.Info("chat model disabled by config")
		case err != nil:
			zlog.Warn("chat model unavailable, ask disabled", zap.Error(err))
		default:
			chatModel = cm
			zlog.Info("chat model ready", zap.String("provider", meta.Provider), zap.String("model", meta.Model))
		}
	}
	// 没有模型时空库仍返回兜底回答，有召回才报 ErrNoChatModel
	askPipe, err := pipeline.NewAskPipeline(books, qa, chatModel, topK, conf.AIConfig.Retrieval.ScoreThreshold)
	if err != nil {
		return nil, err
	}

	sessions := aiPersistence.NewMemorySessionRepository()
	c.AssistantSvc = aiService.NewAssistantService(askPipe, sessions)
	c.SessionSvc = aiService.NewSessionService(conf.JwtConfig, sessions)

	var (
		rec speech.Recognizer
		syn speech.Synthesizer
	)
	if o.recognizer != nil {
		rec, syn = o.recognizer, o.synthesizer
	} else {
		r, s, err := speech.NewFromConfig(conf)
		if err != nil {
			zlog.Warn("speech unavailable, voice disabled", zap.Error(err))
		}
		// 具体类型的 nil 指针不能直接赋给接口
		if r != nil {
			rec = r
		}
		if s != nil {
			syn = s
		}
	}
	c.VoiceSvc = aiService.NewVoiceService(rec, syn, c.AssistantSvc)

	bookRepo, err := c.newBookRepository()
	if err != nil {
		return nil, err
	}
	c.LibrarySvc = libraryService.NewLibraryService(conf.LibraryConfig.BooksDir, conf.LibraryConfig.ProcessedDir, c.IngestSvc, c.Markers, bookRepo)

	if conf.KafkaConfig.Enabled() && !o.noKafka {
		c.setupOutbox()
	}

	var outbox event.Outbox
	if c.Outbox != nil {
		outbox = c.Outbox
	}
	events := event.NewIngestEventHandler(c.Hub, outbox)
	c.IngestSvc.AddListener(c.LibrarySvc.OnIngested)
	c.IngestSvc.AddListener(events.OnIngested)

	if conf.MCPConfig.Enabled {
		c.MCPServer = mcpServer.NewBuiltinMCPServer(
			mcpServer.BuiltinServerConfig{Name: conf.MCPConfig.Name, Version: conf.MCPConfig.Version},
			mcpServer.BuiltinServerDependencies{
				AssistantSvc: c.AssistantSvc,
				QASvc:        c.QASvc,
				LibrarySvc:   c.LibrarySvc,
				WsHub:        c.Hub,
			},
		)
	}

	ok = true
	return c, nil
}

func (c *Container) newBookRepository() (libraryRepo.BookRepository, error) {
	if !c.Conf.MysqlConfig.Enabled() {
		return libraryPersistence.NewMemoryBookRepository(), nil
	}
	db, err := NewGormDB(c.Conf.MysqlConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, sqlDB.Close)
	return libraryPersistence.NewBookRepository(db), nil
}

// setupOutbox Kafka 连不上只记日志，导入流程不受影响
func (c *Container) setupOutbox() {
	kc := c.Conf.KafkaConfig
	if err := kafka.EnsureTopics(kc, kc.IngestedTopic); err != nil {
		zlog.Warn("kafka ensure topic failed", zap.String("topic", kc.IngestedTopic), zap.Error(err))
	}
	pub, err := kafka.NewPublisher(kc)
	if err != nil {
		zlog.Warn("kafka publisher unavailable, ingest events disabled", zap.Error(err))
		return
	}
	c.publisher = pub
	c.Outbox = queue.NewOutboxRelay(pub, kc.IngestedTopic, 0)
}

// Start 启动后台协程（事件发件箱、启动扫描、书库监听），ctx 取消后退出
func (c *Container) Start(ctx context.Context) {
	if c.Conf.LibraryConfig.ScanOnStartup {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			res, err := c.LibrarySvc.Sync(ctx)
			if err != nil {
				zlog.Error("startup library scan failed", zap.Error(err))
				return
			}
			zlog.Info("startup library scan done",
				zap.Int("files", len(res.Items)),
				zap.Int("ingested", res.Ingested),
				zap.Int("failed", res.Failed),
			)
		}()
	}
	if c.Outbox != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			_ = c.Outbox.Run(ctx)
		}()
	}
	if c.Conf.LibraryConfig.Watch {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.LibrarySvc.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zlog.Error("library watcher stopped", zap.Error(err))
			}
		}()
	}
}

// NewIngestWorker 消费 ingestTopic 上的远程导入请求
func (c *Container) NewIngestWorker() (*queue.IngestConsumerWorker, error) {
	kc := c.Conf.KafkaConfig
	if !kc.Enabled() {
		return nil, errors.New("kafka is not configured")
	}
	if err := kafka.EnsureTopics(kc, kc.IngestTopic); err != nil {
		zlog.Warn("kafka ensure topic failed", zap.String("topic", kc.IngestTopic), zap.Error(err))
	}
	consumer, err := kafka.NewIngestConsumer(kc)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, consumer.Close)
	return queue.NewIngestConsumerWorker(consumer, c.IngestSvc), nil
}

// Close 等后台协程退出（调用前先取消 Start 的 ctx），再关闭外部连接
func (c *Container) Close() error {
	c.wg.Wait()
	var errs []error
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
		c.publisher = nil
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
