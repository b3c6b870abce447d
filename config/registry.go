package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/coursesim/core"
)

// 使用配置驱动时，需在 main 或入口处 import "github.com/rushteam/coursesim/store"，
// 以触发内置存储（mongo、csv、redis、memory）的 init 注册。

// SourceBuilder 根据配置构建选课记录来源。
type SourceBuilder func(ctx context.Context, cfg *Config) (core.EnrollmentSource, error)

// SinkBuilder 根据配置构建推荐表存储。
type SinkBuilder func(ctx context.Context, cfg *Config) (core.RecommendationStore, error)

var (
	sources = make(map[string]SourceBuilder)
	sinks   = make(map[string]SinkBuilder)
	mu      sync.RWMutex
)

// RegisterSource 注册一种来源，建议在 init 中调用。
func RegisterSource(typeName string, builder SourceBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	sources[typeName] = builder
}

// RegisterSink 注册一种推荐表存储，建议在 init 中调用。
func RegisterSink(typeName string, builder SinkBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	sinks[typeName] = builder
}

// SupportedSources 返回已注册的来源类型（排序）
func SupportedSources() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(sources)
}

// SupportedSinks 返回已注册的存储类型（排序）
func SupportedSinks() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(sinks)
}

// ValidateBackends 校验 source.type / sink.type 均已注册。
func ValidateBackends(cfg *Config) error {
	mu.RLock()
	_, okSource := sources[cfg.Source.Type]
	_, okSink := sinks[cfg.Sink.Type]
	mu.RUnlock()

	if !okSource {
		return invalid(fmt.Errorf("unsupported source type %q (supported: %v)", cfg.Source.Type, SupportedSources()))
	}
	if !okSink {
		return invalid(fmt.Errorf("unsupported sink type %q (supported: %v)", cfg.Sink.Type, SupportedSinks()))
	}
	return nil
}

// BuildSource 按 source.type 构建来源
func BuildSource(ctx context.Context, cfg *Config) (core.EnrollmentSource, error) {
	mu.RLock()
	b, ok := sources[cfg.Source.Type]
	mu.RUnlock()
	if !ok {
		return nil, invalid(fmt.Errorf("unsupported source type %q (supported: %v)", cfg.Source.Type, SupportedSources()))
	}
	return b(ctx, cfg)
}

// BuildSink 按 sink.type 构建推荐表存储
func BuildSink(ctx context.Context, cfg *Config) (core.RecommendationStore, error) {
	mu.RLock()
	b, ok := sinks[cfg.Sink.Type]
	mu.RUnlock()
	if !ok {
		return nil, invalid(fmt.Errorf("unsupported sink type %q (supported: %v)", cfg.Sink.Type, SupportedSinks()))
	}
	return b(ctx, cfg)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
