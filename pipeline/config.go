package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/coursesim/config"
	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/extract"
	"github.com/rushteam/coursesim/metrics"
	"github.com/rushteam/coursesim/pkg/dsl"
	"github.com/rushteam/coursesim/similarity"
	"github.com/rushteam/coursesim/writer"
)

// Options 是 Build 的可选项
type Options struct {
	// DryRun 为 true 时不添加写入阶段，sink 可为 nil
	DryRun bool

	Metrics *metrics.Recorder
	Logger  zerolog.Logger
}

// Build 根据配置组装标准 Node 链。
func Build(cfg *config.Config, src core.EnrollmentSource, sink core.RecommendationSink, opts Options) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("pipeline: nil source")
	}
	if sink == nil && !opts.DryRun {
		return nil, errors.New("pipeline: nil sink")
	}

	filter, err := dsl.Compile(cfg.Extract.Filter)
	if err != nil {
		return nil, core.ErrInvalidConfig.Wrap(fmt.Errorf("extract.filter: %w", err))
	}
	if !similarity.ValidMetric(cfg.Similarity.Metric) {
		return nil, core.ErrInvalidConfig.Wrap(fmt.Errorf("unsupported metric %q", cfg.Similarity.Metric))
	}

	component := func(name string) zerolog.Logger {
		return opts.Logger.With().Str("component", name).Logger()
	}

	nodes := []Node{
		&ExtractNode{Extractor: &extract.Extractor{
			Source: src,
			Filter: filter,
			Logger: component("extract"),
		}},
		&MatrixNode{},
		&SimilarityNode{Engine: &similarity.Engine{
			Metric:  cfg.Similarity.Metric,
			Workers: cfg.Similarity.Workers,
			Logger:  component("similarity"),
		}},
		&SelectNode{TopK: cfg.Writer.TopK},
	}
	if !opts.DryRun {
		nodes = append(nodes, &WriteNode{Writer: &writer.Writer{
			Sink:             sink,
			SkipClearOnEmpty: cfg.Writer.SkipClearOnEmpty,
			Logger:           component("writer"),
		}})
	}

	return &Pipeline{
		Nodes:   nodes,
		Metrics: opts.Metrics,
		Logger:  opts.Logger,
	}, nil
}
