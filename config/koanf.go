package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/pkg/conv"
)

const (
	// EnvPrefix 是环境变量前缀，COURSESIM_SINK__REDIS__ADDR -> sink.redis.addr
	EnvPrefix = "COURSESIM_"

	// ConfigPathEnvVar 指定配置文件路径
	ConfigPathEnvVar = EnvPrefix + "CONFIG"
)

// DefaultConfigPaths 是未指定路径时依次查找的配置文件
var DefaultConfigPaths = []string{
	"coursesim.yaml",
	"coursesim.yml",
	"/etc/coursesim/config.yaml",
}

// legacyEnv 是无前缀的兼容变量，优先级低于 COURSESIM_ 变量
var legacyEnv = map[string]string{
	"MONGODB_URI": "source.mongo.uri",
	"DB_NAME":     "source.mongo.database",
}

// sliceConfigPaths 从环境变量读入时按逗号拆分
var sliceConfigPaths = []string{
	"source.mongo.attr_fields",
}

// Load 按 默认值 → 文件 → 环境变量 加载配置并校验。
// path 为空时使用 COURSESIM_CONFIG 或 DefaultConfigPaths 中第一个存在的文件；
// 显式指定的文件不存在时返回错误。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, core.ErrInvalidConfig.Wrap(fmt.Errorf("config file %s: %w", path, err))
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, core.ErrInvalidConfig.Wrap(fmt.Errorf("load config file %s: %w", path, err))
		}
	}

	if err := k.Load(env.Provider("", ".", legacyTransform), nil); err != nil {
		return nil, fmt.Errorf("load legacy env: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, core.ErrInvalidConfig.Wrap(fmt.Errorf("unmarshal: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform: COURSESIM_SOURCE__MONGO__LEARNER_FIELD -> source.mongo.learner_field
func envTransform(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func legacyTransform(key string) string {
	return legacyEnv[key]
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		if err := k.Set(path, conv.SplitList(s)); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}
