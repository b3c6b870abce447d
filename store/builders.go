package store

import (
	"context"
	"time"

	"github.com/rushteam/coursesim/config"
	"github.com/rushteam/coursesim/core"
)

func init() {
	config.RegisterSource("mongo", BuildMongoSource)
	config.RegisterSource("csv", BuildCSVSource)
	config.RegisterSink("mongo", BuildMongoSink)
	config.RegisterSink("redis", BuildRedisSink)
	config.RegisterSink("memory", BuildMemorySink)
}

func BuildMongoSource(ctx context.Context, cfg *config.Config) (core.EnrollmentSource, error) {
	m := cfg.Source.Mongo
	ctx, cancel := connectContext(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := ConnectMongo(ctx, m.URI, cfg.ConnectTimeout)
	if err != nil {
		return nil, core.ErrSourceUnavailable.Wrap(err)
	}
	src := NewMongoEnrollmentSource(client, m.Database, m.Collection)
	src.LearnerField = m.LearnerField
	src.CourseField = m.CourseField
	src.AttrFields = m.AttrFields
	src.Group = m.Group
	src.BatchSize = m.BatchSize
	return src, nil
}

func BuildCSVSource(ctx context.Context, cfg *config.Config) (core.EnrollmentSource, error) {
	c := cfg.Source.CSV
	return &CSVEnrollmentSource{
		Path:          c.Path,
		LearnerColumn: c.LearnerColumn,
		CourseColumn:  c.CourseColumn,
	}, nil
}

func BuildMongoSink(ctx context.Context, cfg *config.Config) (core.RecommendationStore, error) {
	ctx, cancel := connectContext(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := ConnectMongo(ctx, cfg.SinkMongoURI(), cfg.ConnectTimeout)
	if err != nil {
		return nil, core.ErrSinkUnavailable.Wrap(err)
	}
	s := NewMongoRecommendationStore(client, cfg.SinkMongoDatabase(), cfg.Sink.Mongo.Collection)
	s.IDFormat = cfg.Sink.Mongo.IDFormat
	s.BatchSize = cfg.Sink.Mongo.BatchSize
	return s, nil
}

func BuildRedisSink(ctx context.Context, cfg *config.Config) (core.RecommendationStore, error) {
	r := cfg.Sink.Redis
	ctx, cancel := connectContext(ctx, cfg.ConnectTimeout)
	defer cancel()

	rs, err := NewRedisStore(ctx, RedisOptions{Addr: r.Addr, Password: r.Password, DB: r.DB})
	if err != nil {
		return nil, err
	}
	kv := NewKVRecommendationStore(rs, r.KeyPrefix)
	kv.TTL = r.TTL
	kv.BatchSize = r.BatchSize
	return kv, nil
}

// BuildMemorySink 用于演示与测试，进程退出后数据丢失。
func BuildMemorySink(ctx context.Context, cfg *config.Config) (core.RecommendationStore, error) {
	return NewKVRecommendationStore(NewMemoryStore(), cfg.Sink.Redis.KeyPrefix), nil
}

func connectContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
