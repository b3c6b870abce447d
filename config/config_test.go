package config

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rushteam/coursesim/core"
)

// isolate 清除可能影响加载结果的环境变量，并切换到空目录
func isolate(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) || legacyEnv[key] != "" {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coursesim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.Type != "mongo" || cfg.Source.Mongo.Database != "test" || cfg.Source.Mongo.Collection != "enrolledcourses" {
		t.Errorf("source = %+v", cfg.Source)
	}
	if cfg.Source.Mongo.LearnerField != "userId" || cfg.Source.Mongo.CourseField != "courseId" || !cfg.Source.Mongo.Group {
		t.Errorf("source fields = %+v", cfg.Source.Mongo)
	}
	if cfg.Sink.Mongo.Collection != "course_similarities" || cfg.SinkMongoDatabase() != "test" {
		t.Errorf("sink = %+v", cfg.Sink.Mongo)
	}
	if cfg.SinkMongoURI() != "mongodb://localhost:27017" {
		t.Errorf("sink uri = %q, want the source uri", cfg.SinkMongoURI())
	}
	if cfg.Writer.TopK != core.DefaultTopK || cfg.Similarity.Metric != "cosine" || cfg.Similarity.Workers != 1 {
		t.Errorf("compute = %+v %+v", cfg.Writer, cfg.Similarity)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("connect timeout = %v", cfg.ConnectTimeout)
	}
}

func TestLoad_Layers(t *testing.T) {
	isolate(t)
	path := writeFile(t, `
source:
  type: csv
  csv:
    path: /data/enrollments.csv
sink:
  type: redis
  redis:
    addr: redis:6379
    ttl: 3600
similarity:
  metric: jaccard
writer:
  top_k: 10
timeout: 15m
`)
	t.Setenv("COURSESIM_WRITER__TOP_K", "3")
	t.Setenv("COURSESIM_SINK__REDIS__KEY_PREFIX", "prod:rec:")
	t.Setenv("COURSESIM_SOURCE__MONGO__ATTR_FIELDS", "status, payment.method")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.Type != "csv" || cfg.Source.CSV.Path != "/data/enrollments.csv" {
		t.Errorf("source = %+v", cfg.Source)
	}
	// 文件未覆盖的字段保留默认值
	if cfg.Source.CSV.LearnerColumn != "learner_id" {
		t.Errorf("learner column = %q", cfg.Source.CSV.LearnerColumn)
	}
	if cfg.Sink.Redis.Addr != "redis:6379" || cfg.Sink.Redis.TTL != 3600 || cfg.Sink.Redis.KeyPrefix != "prod:rec:" {
		t.Errorf("redis = %+v", cfg.Sink.Redis)
	}
	if cfg.Writer.TopK != 3 {
		t.Errorf("top_k = %d, env should win over file", cfg.Writer.TopK)
	}
	if cfg.Similarity.Metric != "jaccard" || cfg.Timeout != 15*time.Minute {
		t.Errorf("metric = %q timeout = %v", cfg.Similarity.Metric, cfg.Timeout)
	}
	if got := cfg.Source.Mongo.AttrFields; len(got) != 2 || got[1] != "payment.method" {
		t.Errorf("attr fields = %v", got)
	}
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	isolate(t)
	t.Setenv(ConfigPathEnvVar, writeFile(t, "source:\n  type: csv\n  csv:\n    path: x.csv\nsink:\n  type: memory\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sink.Type != "memory" {
		t.Errorf("sink type = %q", cfg.Sink.Type)
	}
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	isolate(t)
	t.Setenv("MONGODB_URI", "mongodb://legacy:27017")
	t.Setenv("DB_NAME", "legacy")
	t.Setenv("COURSESIM_SOURCE__MONGO__URI", "mongodb://new:27017")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Mongo.URI != "mongodb://new:27017" {
		t.Errorf("uri = %q", cfg.Source.Mongo.URI)
	}
	if cfg.Source.Mongo.Database != "legacy" || cfg.SinkMongoDatabase() != "legacy" {
		t.Errorf("database = %q / %q", cfg.Source.Mongo.Database, cfg.SinkMongoDatabase())
	}
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("missing file: err = %v", err)
	}
	if _, err := Load(writeFile(t, "source: [broken")); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("bad yaml: err = %v", err)
	}
	// 默认 mongo 来源且没有 URI
	if _, err := Load(""); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("missing uri: err = %v", err)
	}
}

func validCSV() *Config {
	cfg := Default()
	cfg.Source.Type = "csv"
	cfg.Source.CSV.Path = "e.csv"
	cfg.Sink.Type = "memory"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "top_k zero", mutate: func(c *Config) { c.Writer.TopK = 0 }, wantErr: "top_k"},
		{name: "metric", mutate: func(c *Config) { c.Similarity.Metric = "pearson" }, wantErr: "metric"},
		{name: "workers", mutate: func(c *Config) { c.Similarity.Workers = -1 }, wantErr: "workers"},
		{name: "filter", mutate: func(c *Config) { c.Extract.Filter = "course_id ==" }, wantErr: "extract.filter"},
		{name: "csv path", mutate: func(c *Config) { c.Source.CSV.Path = "" }, wantErr: "source.csv.path"},
		{name: "no source type", mutate: func(c *Config) { c.Source.Type = "" }, wantErr: "source.type"},
		{
			name:    "mongo uri scheme",
			mutate:  func(c *Config) { c.Source.Type = "mongo"; c.Source.Mongo.URI = "http://x" },
			wantErr: "scheme",
		},
		{
			name:    "mongo sink needs uri",
			mutate:  func(c *Config) { c.Sink.Type = "mongo" },
			wantErr: "sink.mongo.uri",
		},
		{
			name:    "id format",
			mutate:  func(c *Config) { c.Sink.Type = "mongo"; c.Sink.Mongo.URI = "mongodb://h"; c.Sink.Mongo.IDFormat = "uuid" },
			wantErr: "id_format",
		},
		{name: "redis ttl", mutate: func(c *Config) { c.Sink.Type = "redis"; c.Sink.Redis.TTL = -1 }, wantErr: "ttl"},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "push url", mutate: func(c *Config) { c.Metrics.PushURL = "ftp://gw" }, wantErr: "push_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCSV()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, core.ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   int
	}{
		{name: "csv to memory", mutate: func(c *Config) {}, want: 0},
		{name: "csv to mongo objectid", mutate: func(c *Config) { c.Sink.Type = "mongo" }, want: 1},
		{
			name:   "csv to mongo string ids",
			mutate: func(c *Config) { c.Sink.Type = "mongo"; c.Sink.Mongo.IDFormat = "string" },
			want:   0,
		},
		{
			name:   "mongo to mongo",
			mutate: func(c *Config) { c.Source.Type = "mongo"; c.Sink.Type = "mongo" },
			want:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCSV()
			tt.mutate(cfg)
			if got := cfg.Warnings(); len(got) != tt.want {
				t.Errorf("Warnings() = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestDump_Redacts(t *testing.T) {
	cfg := Default()
	cfg.Source.Mongo.URI = "mongodb://admin:s3cret@db:27017/?authSource=admin"
	cfg.Sink.Redis.Password = "hunter2"

	var buf bytes.Buffer
	if err := Dump(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "s3cret") || strings.Contains(out, "hunter2") {
		t.Errorf("secret leaked:\n%s", out)
	}
	if !strings.Contains(out, "admin:"+redacted+"@db:27017") {
		t.Errorf("uri not redacted as expected:\n%s", out)
	}
	if !strings.Contains(out, "collection: enrolledcourses") {
		t.Errorf("missing fields:\n%s", out)
	}
	if cfg.Source.Mongo.URI != "mongodb://admin:s3cret@db:27017/?authSource=admin" {
		t.Error("Dump must not modify the config")
	}
}

func TestRegistry(t *testing.T) {
	RegisterSource("test-source", func(ctx context.Context, cfg *Config) (core.EnrollmentSource, error) {
		return nil, errors.New("built")
	})
	RegisterSource("", nil)

	cfg := validCSV()
	cfg.Source.Type = "test-source"
	cfg.Sink.Type = "nowhere"

	if _, err := BuildSource(context.Background(), cfg); err == nil || err.Error() != "built" {
		t.Errorf("BuildSource err = %v, want builder error", err)
	}
	if err := ValidateBackends(cfg); !errors.Is(err, core.ErrInvalidConfig) || !strings.Contains(err.Error(), "nowhere") {
		t.Errorf("ValidateBackends err = %v", err)
	}
	if _, err := BuildSink(context.Background(), cfg); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("BuildSink err = %v", err)
	}

	found := false
	for _, s := range SupportedSources() {
		found = found || s == "test-source"
	}
	if !found {
		t.Errorf("SupportedSources() = %v", SupportedSources())
	}
}
