package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/pkg/dsl"
)

// 已知的相似度度量与 ID 格式；存储类型由注册表校验。
var (
	validMetrics   = []string{"cosine", "jaccard"}
	validIDFormats = []string{"objectid", "string"}
	validLevels    = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	validFormats   = []string{"json", "console"}
)

// Validate 校验配置，返回包装了 core.ErrInvalidConfig 的错误（包含所有问题）。
func (c *Config) Validate() error {
	errs := []error{
		c.validateSource(),
		c.validateSink(),
		c.validateCompute(),
		c.validateLogging(),
	}
	if c.Metrics.PushURL != "" {
		if err := validateHTTPURL(c.Metrics.PushURL); err != nil {
			errs = append(errs, fmt.Errorf("metrics.push_url: %w", err))
		}
	}
	if c.Timeout < 0 || c.ConnectTimeout < 0 {
		errs = append(errs, errors.New("timeout and connect_timeout must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return invalid(err)
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Type {
	case "mongo":
		m := c.Source.Mongo
		var errs []error
		if strings.TrimSpace(m.URI) == "" {
			errs = append(errs, errors.New("source.mongo.uri is required (or MONGODB_URI)"))
		} else if err := validateMongoURI(m.URI); err != nil {
			errs = append(errs, fmt.Errorf("source.mongo.uri: %w", err))
		}
		if m.Database == "" || m.Collection == "" {
			errs = append(errs, errors.New("source.mongo.database and source.mongo.collection are required"))
		}
		if m.LearnerField == "" || m.CourseField == "" || m.LearnerField == m.CourseField {
			errs = append(errs, errors.New("source.mongo.learner_field and course_field must be distinct and non-empty"))
		}
		return errors.Join(errs...)
	case "csv":
		if c.Source.CSV.Path == "" {
			return errors.New("source.csv.path is required")
		}
		if c.Source.CSV.LearnerColumn == c.Source.CSV.CourseColumn {
			return errors.New("source.csv.learner_column and course_column must differ")
		}
		return nil
	case "":
		return errors.New("source.type is required")
	default:
		// 其他类型由注册表在构建时校验
		return nil
	}
}

func (c *Config) validateSink() error {
	switch c.Sink.Type {
	case "mongo":
		var errs []error
		uri := c.SinkMongoURI()
		if strings.TrimSpace(uri) == "" {
			errs = append(errs, errors.New("sink.mongo.uri is required when source is not mongo"))
		} else if err := validateMongoURI(uri); err != nil {
			errs = append(errs, fmt.Errorf("sink.mongo.uri: %w", err))
		}
		if c.SinkMongoDatabase() == "" || c.Sink.Mongo.Collection == "" {
			errs = append(errs, errors.New("sink.mongo.database and sink.mongo.collection are required"))
		}
		if !contains(validIDFormats, c.Sink.Mongo.IDFormat) {
			errs = append(errs, fmt.Errorf("sink.mongo.id_format %q (supported: %v)", c.Sink.Mongo.IDFormat, validIDFormats))
		}
		return errors.Join(errs...)
	case "redis":
		if c.Sink.Redis.Addr == "" {
			return errors.New("sink.redis.addr is required")
		}
		if c.Sink.Redis.KeyPrefix == "" {
			return errors.New("sink.redis.key_prefix must not be empty")
		}
		if c.Sink.Redis.TTL < 0 {
			return errors.New("sink.redis.ttl must not be negative")
		}
		return nil
	case "":
		return errors.New("sink.type is required")
	default:
		return nil
	}
}

func (c *Config) validateCompute() error {
	var errs []error
	if c.Writer.TopK <= 0 {
		errs = append(errs, fmt.Errorf("writer.top_k must be positive, got %d", c.Writer.TopK))
	}
	if !contains(validMetrics, c.Similarity.Metric) {
		errs = append(errs, fmt.Errorf("similarity.metric %q (supported: %v)", c.Similarity.Metric, validMetrics))
	}
	if c.Similarity.Workers < 0 {
		errs = append(errs, fmt.Errorf("similarity.workers must not be negative, got %d", c.Similarity.Workers))
	}
	if c.Extract.Filter != "" {
		if _, err := dsl.Compile(c.Extract.Filter); err != nil {
			errs = append(errs, fmt.Errorf("extract.filter: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateLogging() error {
	if !contains(validLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("logging.level %q (supported: %v)", c.Logging.Level, validLevels)
	}
	if !contains(validFormats, strings.ToLower(c.Logging.Format)) {
		return fmt.Errorf("logging.format %q (supported: %v)", c.Logging.Format, validFormats)
	}
	return nil
}

func invalid(err error) error { return core.ErrInvalidConfig.Wrap(err) }

func validateMongoURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return fmt.Errorf("scheme must be mongodb or mongodb+srv, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Warnings 返回能通过校验、但很可能让写入整体失败的配置组合。
func (c *Config) Warnings() []string {
	var warns []string
	if c.Source.Type == "csv" && c.Sink.Type == "mongo" && c.Sink.Mongo.IDFormat != "string" {
		warns = append(warns, "csv source ids are written to mongo as ObjectIDs; rows whose ids are not 24-char hex will be rejected (set sink.mongo.id_format: string)")
	}
	return warns
}
