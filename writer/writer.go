// Package writer 从相似度矩阵生成推荐表并整体替换输出集合。
package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/coursesim/core"
)

// Writer 把内存中的完整推荐表写入输出集合：先 Clear，再 BulkInsert。
//
// 两步之间没有事务：Clear 成功而写入失败时，下游在下次成功运行前会看到空表。
type Writer struct {
	Sink core.RecommendationSink

	// SkipClearOnEmpty 为 true 时，推荐表为空则保留旧表不做任何修改；
	// 默认 false：照常清空，空表本身就是本次运行的结果
	SkipClearOnEmpty bool

	Logger zerolog.Logger
}

func (w *Writer) Name() string { return "writer.replace" }

// Write 用 entries 整体替换输出集合。
// Clear 失败时不会写入，返回错误；BulkInsert 的部分失败通过 WriteResult 报告。
// 推荐表非空却没有任何一行能写入时返回 ErrNothingWritten：
// Sink 实现了 core.RecommendationChecker 时在 Clear 之前就能发现，旧表保持不变。
func (w *Writer) Write(ctx context.Context, entries []core.RecommendationEntry) (*core.WriteResult, error) {
	if w.Sink == nil {
		return nil, core.ErrSinkUnavailable.Wrap(errors.New("no sink configured"))
	}

	if len(entries) == 0 {
		if w.SkipClearOnEmpty {
			w.Logger.Warn().Str("sink", w.Sink.Name()).Msg("no recommendation entries, keeping previous table")
			return &core.WriteResult{}, nil
		}
		w.Logger.Warn().Str("sink", w.Sink.Name()).Msg("no recommendation entries, table will be left empty")
	}

	writable, rejected := w.check(entries)
	if len(entries) > 0 && len(writable) == 0 {
		res := &core.WriteResult{Failed: rejected}
		w.logFailed(rejected)
		w.Logger.Error().Str("sink", w.Sink.Name()).Int("rejected", len(rejected)).
			Msg("no entry accepted by sink, previous table kept")
		return res, core.ErrNothingWritten.Wrap(fmt.Errorf("all %d entries rejected: %s", len(rejected), rejected[0].Reason))
	}

	if err := w.Sink.Clear(ctx); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return &core.WriteResult{}, nil
	}

	res, err := w.Sink.BulkInsert(ctx, writable)
	if res == nil {
		res = &core.WriteResult{}
	}
	res.Failed = append(rejected, res.Failed...)
	if err != nil {
		w.Logger.Error().Err(err).Str("sink", w.Sink.Name()).Msg("bulk insert failed after clear")
		return res, err
	}

	w.logFailed(res.Failed)
	if res.Inserted == 0 {
		w.Logger.Error().Str("sink", w.Sink.Name()).Int("failed", len(res.Failed)).
			Msg("table cleared but no entry written")
		return res, core.ErrNothingWritten.Wrap(fmt.Errorf("all %d entries failed", len(entries)))
	}

	w.Logger.Info().
		Str("sink", w.Sink.Name()).
		Int("inserted", res.Inserted).
		Int("failed", len(res.Failed)).
		Msg("recommendation table replaced")
	return res, nil
}

// check 用 Sink 的 RecommendationChecker（若有）筛掉必然写入失败的行。
func (w *Writer) check(entries []core.RecommendationEntry) ([]core.RecommendationEntry, []core.FailedRow) {
	checker, ok := w.Sink.(core.RecommendationChecker)
	if !ok {
		return entries, nil
	}
	var (
		writable = make([]core.RecommendationEntry, 0, len(entries))
		rejected []core.FailedRow
	)
	for _, e := range entries {
		if err := checker.Check(e); err != nil {
			rejected = append(rejected, core.FailedRow{CourseID: e.CourseID, Reason: err.Error()})
			continue
		}
		writable = append(writable, e)
	}
	return writable, rejected
}

func (w *Writer) logFailed(rows []core.FailedRow) {
	for _, f := range rows {
		w.Logger.Warn().Str("course_id", f.CourseID).Str("reason", f.Reason).Msg("recommendation row not written")
	}
}
