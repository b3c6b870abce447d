package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/coursesim/metrics"
)

// Pipeline 把批任务拆成顺序执行的 Node 链：
// extract -> matrix -> similarity -> select -> write。
//
// 任一 Node 失败立即终止，后续 Node（包括写入）不会执行；
// 每个 Node 开始前检查 ctx，取消后不会再开始新的阶段。
type Pipeline struct {
	Nodes []Node

	// Metrics 可为 nil
	Metrics *metrics.Recorder

	Logger zerolog.Logger
}

// StageTiming 是单个 Node 的耗时
type StageTiming struct {
	Name     string
	Kind     Kind
	Duration time.Duration
}

// Report 汇总一次运行
type Report struct {
	RunID    string
	State    *State
	Stages   []StageTiming
	Duration time.Duration
}

// RecordsRead 返回从数据源读到的原始记录数（含重复与缺字段记录）
func (r *Report) RecordsRead() int { return r.State.Stats.Read }

// PairsRead 返回去重后的有效 (learner, course) 对数
func (r *Report) PairsRead() int { return r.State.Stats.Pairs }

// EntriesWritten 返回成功写入的推荐表行数，未执行写入时为 0
func (r *Report) EntriesWritten() int {
	if r.State.Write == nil {
		return 0
	}
	return r.State.Write.Inserted
}

// Run 执行一次批任务。出错时仍返回已完成阶段的 Report。
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), State: &State{}}
	log := p.Logger.With().Str("run_id", report.RunID).Logger()
	start := time.Now()

	err := p.run(ctx, report, log)
	report.Duration = time.Since(start)
	p.Metrics.MarkResult(err)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", report.Duration).Msg("run aborted")
		return report, err
	}

	log.Info().
		Int("records_read", report.RecordsRead()).
		Int("pairs_read", report.PairsRead()).
		Int("entries", len(report.State.Entries)).
		Int("entries_written", report.EntriesWritten()).
		Dur("elapsed", report.Duration).
		Msg("run finished")
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *Report, log zerolog.Logger) error {
	st := report.State
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("before %s: %w", node.Name(), err)
		}

		t0 := time.Now()
		err := node.Process(ctx, st)
		d := time.Since(t0)

		report.Stages = append(report.Stages, StageTiming{Name: node.Name(), Kind: node.Kind(), Duration: d})
		p.Metrics.ObserveStage(string(node.Kind()), d)
		p.record(node.Kind(), st)

		if err != nil {
			return fmt.Errorf("%s: %w", node.Name(), err)
		}
		log.Debug().Str("node", node.Name()).Dur("elapsed", d).Msg("stage done")
	}
	return nil
}

func (p *Pipeline) record(kind Kind, st *State) {
	switch kind {
	case KindExtract:
		s := st.Stats
		p.Metrics.RecordExtract(s.Read, s.Malformed, s.Filtered, s.Duplicates, s.Pairs)
	case KindMatrix:
		if st.Matrix != nil {
			l, c := st.Matrix.Shape()
			p.Metrics.RecordMatrix(l, c, st.Matrix.NonZero())
		}
	case KindWrite:
		if st.Write != nil {
			p.Metrics.RecordWrite(st.Write.Inserted, len(st.Write.Failed))
		}
	}
}
