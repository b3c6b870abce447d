package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rushteam/coursesim/pkg/conv"
)

// ID 在 Mongo 中的存储格式
const (
	IDFormatObjectID = "objectid"
	IDFormatString   = "string"
)

// ErrMissingMongoURI 表示没有配置连接串
var ErrMissingMongoURI = errors.New("mongo: missing uri")

// ConnectMongo 建立 MongoDB 连接并 Ping。调用方负责 Disconnect。
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, ErrMissingMongoURI
	}

	opt := options.Client().ApplyURI(uri)
	// ServerAPI 只对 Atlas（mongodb+srv://）有意义
	if strings.HasPrefix(uri, "mongodb+srv://") {
		opt.SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	}
	if timeout > 0 {
		opt.SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	}

	client, err := mongo.Connect(opt)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return client, nil
}

// idFromBSON 把 Mongo 原生 ID 转为不透明字符串：ObjectID 取 hex，数字取十进制。
func idFromBSON(v any) (string, bool) {
	return conv.ToID(normalizeBSON(v))
}

// encodeID 把不透明 ID 转为 Mongo 存储格式。
func encodeID(format, id string) (any, error) {
	if format == IDFormatString {
		return id, nil
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid object id %q: %w", id, err)
	}
	return oid, nil
}

// normalizeBSON 把解码出的 BSON 值转为 CEL 可用的 Go 值。
func normalizeBSON(v any) any {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC()
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = normalizeBSON(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = normalizeBSON(e)
		}
		return m
	case bson.A:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeBSON(e)
		}
		return out
	default:
		return conv.Normalize(v)
	}
}
