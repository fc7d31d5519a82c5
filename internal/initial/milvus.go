package initial

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"ChatBooks/internal/config"
	"ChatBooks/internal/modules/ai/infrastructure/vectordb"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	milvusIDMaxLen      = 128
	milvusContentMaxLen = 65535
)

// NewMilvusClient 连接 Milvus，数据库和集合不存在时创建，集合建好后加载
func NewMilvusClient(ctx context.Context, conf *config.Config, dim int, collections ...string) (mclient.Client, error) {
	mc := conf.MilvusConfig
	if strings.TrimSpace(mc.Address) == "" {
		return nil, errors.New("milvus address is empty")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dim: %d", dim)
	}
	dbName := strings.TrimSpace(mc.DBName)
	if dbName == "" {
		dbName = "chatbooks"
	}

	if err := ensureMilvusDatabase(ctx, mc, dbName); err != nil {
		return nil, fmt.Errorf("milvus database %s: %w", dbName, err)
	}
	cli, err := mclient.NewClient(ctx, milvusClientConfig(mc, dbName))
	if err != nil {
		return nil, err
	}
	for _, name := range collections {
		if err := ensureMilvusCollection(ctx, cli, name, dim); err != nil {
			_ = cli.Close()
			return nil, fmt.Errorf("milvus collection %s: %w", name, err)
		}
	}
	return cli, nil
}

func milvusClientConfig(mc config.MilvusConfig, db string) mclient.Config {
	return mclient.Config{
		Address:  strings.TrimSpace(mc.Address),
		Username: strings.TrimSpace(mc.Username),
		Password: strings.TrimSpace(mc.Password),
		DBName:   db,
	}
}

// ensureMilvusDatabase 建库要通过 default 库的连接
func ensureMilvusDatabase(ctx context.Context, mc config.MilvusConfig, name string) error {
	cli, err := mclient.NewClient(ctx, milvusClientConfig(mc, "default"))
	if err != nil {
		return err
	}
	defer cli.Close()

	dbs, err := cli.ListDatabases(ctx)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(dbs, func(db entity.Database) bool { return db.Name == name }) {
		return nil
	}
	return cli.CreateDatabase(ctx, name)
}

// milvusSchema 主键是 chunk ID，内容和元数据原样存储
func milvusSchema(collection string, dim int) *entity.Schema {
	return entity.NewSchema().
		WithName(collection).
		WithDescription("ChatBooks " + collection + " vectors").
		WithField(entity.NewField().WithName(vectordb.MilvusFieldID).
			WithDataType(entity.FieldTypeVarChar).WithIsPrimaryKey(true).WithMaxLength(milvusIDMaxLen)).
		WithField(entity.NewField().WithName(vectordb.MilvusFieldVector).
			WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim))).
		WithField(entity.NewField().WithName(vectordb.MilvusFieldContent).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusContentMaxLen)).
		WithField(entity.NewField().WithName(vectordb.MilvusFieldMetadata).
			WithDataType(entity.FieldTypeJSON))
}

func ensureMilvusCollection(ctx context.Context, cli mclient.Client, collection string, dim int) error {
	has, err := cli.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if has {
		if err := checkMilvusDim(ctx, cli, collection, dim); err != nil {
			return err
		}
		return cli.LoadCollection(ctx, collection, false)
	}

	if err := cli.CreateCollection(ctx, milvusSchema(collection, dim), entity.DefaultShardNumber); err != nil {
		return err
	}
	idx, err := entity.NewIndexAUTOINDEX(entity.COSINE)
	if err != nil {
		return err
	}
	if err := cli.CreateIndex(ctx, collection, vectordb.MilvusFieldVector, idx, false); err != nil {
		return err
	}
	return cli.LoadCollection(ctx, collection, false)
}

// checkMilvusDim 换了 embedding 模型后旧集合不能直接复用
func checkMilvusDim(ctx context.Context, cli mclient.Client, collection string, dim int) error {
	coll, err := cli.DescribeCollection(ctx, collection)
	if err != nil {
		return err
	}
	if coll.Schema == nil {
		return nil
	}
	for _, f := range coll.Schema.Fields {
		if f.Name != vectordb.MilvusFieldVector {
			continue
		}
		got, err := strconv.Atoi(f.TypeParams[entity.TypeParamDim])
		if err == nil && got != dim {
			return fmt.Errorf("existing vector dim %d, embedder dim %d", got, dim)
		}
	}
	return nil
}
