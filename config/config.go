package config

import (
	"time"

	"github.com/rushteam/coursesim/core"
)

// Config 是批任务的完整配置。
//
// 加载顺序：结构体默认值 → YAML 文件 → 环境变量（COURSESIM_ 前缀，"__" 表示层级），
// 后者覆盖前者。
type Config struct {
	Source     SourceConfig     `koanf:"source" yaml:"source"`
	Sink       SinkConfig       `koanf:"sink" yaml:"sink"`
	Extract    ExtractConfig    `koanf:"extract" yaml:"extract"`
	Similarity SimilarityConfig `koanf:"similarity" yaml:"similarity"`
	Writer     WriterConfig     `koanf:"writer" yaml:"writer"`
	Logging    LoggingConfig    `koanf:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `koanf:"metrics" yaml:"metrics"`

	// Timeout 是整个批任务的超时，0 表示不限制
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`

	// ConnectTimeout 是连接并 Ping 存储的超时
	ConnectTimeout time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
}

// SourceConfig 选课记录来源
type SourceConfig struct {
	Type  string            `koanf:"type" yaml:"type"`
	Mongo MongoSourceConfig `koanf:"mongo" yaml:"mongo"`
	CSV   CSVSourceConfig   `koanf:"csv" yaml:"csv"`
}

type MongoSourceConfig struct {
	URI          string   `koanf:"uri" yaml:"uri"`
	Database     string   `koanf:"database" yaml:"database"`
	Collection   string   `koanf:"collection" yaml:"collection"`
	LearnerField string   `koanf:"learner_field" yaml:"learner_field"`
	CourseField  string   `koanf:"course_field" yaml:"course_field"`
	AttrFields   []string `koanf:"attr_fields" yaml:"attr_fields"`
	Group        bool     `koanf:"group" yaml:"group"`
	BatchSize    int32    `koanf:"batch_size" yaml:"batch_size"`
}

type CSVSourceConfig struct {
	Path          string `koanf:"path" yaml:"path"`
	LearnerColumn string `koanf:"learner_column" yaml:"learner_column"`
	CourseColumn  string `koanf:"course_column" yaml:"course_column"`
}

// SinkConfig 推荐表存储
type SinkConfig struct {
	Type  string          `koanf:"type" yaml:"type"`
	Mongo MongoSinkConfig `koanf:"mongo" yaml:"mongo"`
	Redis RedisSinkConfig `koanf:"redis" yaml:"redis"`
}

type MongoSinkConfig struct {
	// URI / Database 为空时复用 source.mongo 的值
	URI        string `koanf:"uri" yaml:"uri"`
	Database   string `koanf:"database" yaml:"database"`
	Collection string `koanf:"collection" yaml:"collection"`
	IDFormat   string `koanf:"id_format" yaml:"id_format"`
	BatchSize  int    `koanf:"batch_size" yaml:"batch_size"`
}

type RedisSinkConfig struct {
	Addr      string `koanf:"addr" yaml:"addr"`
	Password  string `koanf:"password" yaml:"password"`
	DB        int    `koanf:"db" yaml:"db"`
	KeyPrefix string `koanf:"key_prefix" yaml:"key_prefix"`
	// TTL 单位秒，0 表示不过期
	TTL       int `koanf:"ttl" yaml:"ttl"`
	BatchSize int `koanf:"batch_size" yaml:"batch_size"`
}

type ExtractConfig struct {
	// Filter 是 CEL 表达式，为空表示不过滤
	Filter string `koanf:"filter" yaml:"filter"`
}

type SimilarityConfig struct {
	Metric  string `koanf:"metric" yaml:"metric"`
	Workers int    `koanf:"workers" yaml:"workers"`
}

type WriterConfig struct {
	TopK             int  `koanf:"top_k" yaml:"top_k"`
	SkipClearOnEmpty bool `koanf:"skip_clear_on_empty" yaml:"skip_clear_on_empty"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
	Caller bool   `koanf:"caller" yaml:"caller"`
}

type MetricsConfig struct {
	// PushURL 是 Pushgateway 地址，为空时不推送
	PushURL string `koanf:"push_url" yaml:"push_url"`
	Job     string `koanf:"job" yaml:"job"`
}

// SinkMongoURI 返回 sink 实际使用的连接串
func (c *Config) SinkMongoURI() string {
	if c.Sink.Mongo.URI != "" {
		return c.Sink.Mongo.URI
	}
	return c.Source.Mongo.URI
}

// SinkMongoDatabase 返回 sink 实际使用的库名
func (c *Config) SinkMongoDatabase() string {
	if c.Sink.Mongo.Database != "" {
		return c.Sink.Mongo.Database
	}
	return c.Source.Mongo.Database
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Type: "mongo",
			Mongo: MongoSourceConfig{
				Database:     "test",
				Collection:   "enrolledcourses",
				LearnerField: "userId",
				CourseField:  "courseId",
				Group:        true,
			},
			CSV: CSVSourceConfig{
				LearnerColumn: "learner_id",
				CourseColumn:  "course_id",
			},
		},
		Sink: SinkConfig{
			Type: "mongo",
			Mongo: MongoSinkConfig{
				Collection: "course_similarities",
				IDFormat:   "objectid",
				BatchSize:  core.DefaultInsertBatchSize,
			},
			Redis: RedisSinkConfig{
				Addr:      "127.0.0.1:6379",
				KeyPrefix: "coursesim:rec:",
				BatchSize: core.DefaultInsertBatchSize,
			},
		},
		Similarity: SimilarityConfig{
			Metric:  core.DefaultMetric,
			Workers: core.DefaultWorkers,
		},
		Writer: WriterConfig{
			TopK: core.DefaultTopK,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Job: "coursesim",
		},
		ConnectTimeout: 10 * time.Second,
	}
}
