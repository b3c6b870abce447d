// coursesim 离线计算课程相似度并整体替换推荐表。
//
//	coursesim -config coursesim.yaml            # 计算并写入
//	coursesim -dry-run                          # 只计算，推荐表输出到 stdout
//	coursesim -print-config                     # 输出生效配置（密码已隐藏）
//	coursesim -lookup <course>[,<course>...]    # 查询推荐表
//
// 退出码：0 成功；1 配置错误、存储不可达、没有有效选课记录或写入中止。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/coursesim/config"
	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/logging"
	"github.com/rushteam/coursesim/lookup"
	"github.com/rushteam/coursesim/metrics"
	"github.com/rushteam/coursesim/pipeline"
	"github.com/rushteam/coursesim/pkg/conv"
	_ "github.com/rushteam/coursesim/store"
)

const closeTimeout = 10 * time.Second

type flags struct {
	configPath  string
	printConfig bool
	dryRun      bool
	lookup      string
	limit       int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var f flags
	fs := flag.NewFlagSet("coursesim", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "config file (default $"+config.ConfigPathEnvVar+" or ./coursesim.yaml)")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective config and exit")
	fs.BoolVar(&f.dryRun, "dry-run", false, "compute the table and print it without touching the sink")
	fs.StringVar(&f.lookup, "lookup", "", "comma separated course ids to look up in the sink")
	fs.IntVar(&f.limit, "limit", lookup.DefaultLimit, "max recommendations for a multi-course lookup")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "coursesim:", err)
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log := logging.Component("main")
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	if f.printConfig {
		if err := config.Dump(stdout, cfg); err != nil {
			log.Error().Err(err).Msg("print config")
			return 1
		}
		return 0
	}
	if err := config.ValidateBackends(cfg); err != nil {
		log.Error().Err(err).Msg("invalid config")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if f.lookup != "" {
		return runLookup(ctx, cfg, conv.SplitList(f.lookup), f.limit, stdout, log)
	}
	return runBatch(ctx, cfg, f.dryRun, stdout, log)
}

func runBatch(ctx context.Context, cfg *config.Config, dryRun bool, stdout io.Writer, log zerolog.Logger) int {
	// 写入前先确认两端都可达
	src, err := config.BuildSource(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("source", cfg.Source.Type).Msg("source unavailable")
		return 1
	}
	defer closeWith(log, "source", src.Close)

	var sink core.RecommendationStore
	if !dryRun {
		sink, err = config.BuildSink(ctx, cfg)
		if err != nil {
			log.Error().Err(err).Str("sink", cfg.Sink.Type).Msg("sink unavailable")
			return 1
		}
		defer closeWith(log, "sink", sink.Close)
	}

	rec := metrics.New()
	p, err := pipeline.Build(cfg, src, sink, pipeline.Options{
		DryRun:  dryRun,
		Metrics: rec,
		Logger:  logging.Logger(),
	})
	if err != nil {
		log.Error().Err(err).Msg("build pipeline")
		return 1
	}

	log.Info().
		Str("source", src.Name()).
		Str("metric", cfg.Similarity.Metric).
		Int("top_k", cfg.Writer.TopK).
		Bool("dry_run", dryRun).
		Msg("run started")

	report, runErr := p.Run(ctx)
	pushMetrics(rec, cfg, log)

	if runErr != nil {
		switch {
		case core.IsEmptyDataset(runErr):
			log.Error().Msg("no valid enrollment pairs, sink left untouched")
		case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
			log.Error().Err(runErr).Msg("run interrupted")
		case core.IsUnavailable(runErr):
			log.Error().Err(runErr).Msg("store unavailable")
		case errors.Is(runErr, core.ErrNothingWritten):
			log.Error().Err(runErr).Msg("write aborted, no recommendation entry written")
		}
		return 1
	}

	if dryRun {
		if err := printJSON(stdout, report.State.Entries); err != nil {
			log.Error().Err(err).Msg("print table")
			return 1
		}
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("records_read", report.RecordsRead()).
		Int("pairs_read", report.PairsRead()).
		Int("entries_written", report.EntriesWritten()).
		Msg("done")
	return 0
}

func runLookup(ctx context.Context, cfg *config.Config, courses []string, limit int, stdout io.Writer, log zerolog.Logger) int {
	if len(courses) == 0 {
		log.Error().Msg("lookup: no course id given")
		return 1
	}
	sink, err := config.BuildSink(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("sink", cfg.Sink.Type).Msg("sink unavailable")
		return 1
	}
	defer closeWith(log, "sink", sink.Close)

	svc := &lookup.Service{Reader: sink}
	var recs []core.Recommendation
	if len(courses) == 1 {
		recs, err = svc.Similar(ctx, courses[0])
	} else {
		recs, err = svc.ForLearner(ctx, courses, limit)
	}
	if err != nil {
		log.Error().Err(err).Strs("courses", courses).Msg("lookup failed")
		return 1
	}
	if recs == nil {
		recs = []core.Recommendation{}
	}
	if err := printJSON(stdout, recs); err != nil {
		log.Error().Err(err).Msg("print lookup")
		return 1
	}
	return 0
}

func pushMetrics(rec *metrics.Recorder, cfg *config.Config, log zerolog.Logger) {
	if cfg.Metrics.PushURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := rec.Push(ctx, cfg.Metrics.PushURL, cfg.Metrics.Job); err != nil {
		log.Warn().Err(err).Str("url", cfg.Metrics.PushURL).Msg("push metrics")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// closeWith 使用独立的 ctx 关闭连接，避免 ctx 已取消时连接泄漏
func closeWith(log zerolog.Logger, what string, closeFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		log.Warn().Err(err).Str("what", what).Msg("close")
	}
}
