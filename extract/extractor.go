// Package extract 把原始选课记录规整为去重后的 (learner, course) 对。
package extract

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/pkg/dsl"
)

// Stats 记录一次抽取的计数，用于日志与指标。
type Stats struct {
	Read       int // 从数据源读到的记录数
	Malformed  int // 缺少 learner 或 course 的记录数
	Filtered   int // 被过滤表达式拒绝的记录数
	Duplicates int // 重复 (learner, course) 的记录数
	Pairs      int // 去重后的对数
}

// Extractor 是选课记录抽取器。
//
// 处理规则：
//   - learner / course 任一为空（去除空白后）的记录静默丢弃
//   - Filter 不为 nil 时，只保留表达式为 true 的记录
//   - 按 (learner, course) 去重：信号是"是否选过"，不是购买次数
//   - 结果为空时返回 core.ErrEmptyDataset
type Extractor struct {
	Source core.EnrollmentSource

	// Filter 是可选的记录过滤表达式
	Filter *dsl.Predicate

	Logger zerolog.Logger
}

func (e *Extractor) Name() string { return "extract.enrollments" }

// Extract 读取全部记录并返回排序后的去重对。
// 数据源错误一律视为致命：不返回部分结果。
func (e *Extractor) Extract(ctx context.Context) ([]core.Enrollment, Stats, error) {
	var stats Stats
	if e.Source == nil {
		return nil, stats, core.ErrSourceUnavailable.Wrap(errors.New("no source configured"))
	}

	seen := make(map[core.Enrollment]struct{})
	err := e.Source.Scan(ctx, func(rec core.RawEnrollment) error {
		stats.Read++

		pair, ok := normalize(rec)
		if !ok {
			stats.Malformed++
			return nil
		}

		if e.Filter != nil {
			rec.LearnerID, rec.CourseID = pair.LearnerID, pair.CourseID
			keep, err := e.Filter.Match(rec)
			if err != nil {
				e.Logger.Debug().Err(err).
					Str("learner_id", pair.LearnerID).
					Str("course_id", pair.CourseID).
					Msg("filter evaluation failed, dropping record")
			}
			if !keep {
				stats.Filtered++
				return nil
			}
		}

		if _, dup := seen[pair]; dup {
			stats.Duplicates++
			return nil
		}
		seen[pair] = struct{}{}
		return nil
	})
	if err != nil {
		// 取消/超时原样返回，不算作数据源不可达
		if core.IsUnavailable(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, stats, err
		}
		return nil, stats, core.ErrSourceUnavailable.Wrap(err)
	}

	stats.Pairs = len(seen)
	if len(seen) == 0 {
		return nil, stats, core.ErrEmptyDataset
	}

	pairs := make([]core.Enrollment, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].LearnerID != pairs[j].LearnerID {
			return pairs[i].LearnerID < pairs[j].LearnerID
		}
		return pairs[i].CourseID < pairs[j].CourseID
	})

	e.Logger.Info().
		Str("source", e.Source.Name()).
		Int("read", stats.Read).
		Int("malformed", stats.Malformed).
		Int("filtered", stats.Filtered).
		Int("duplicates", stats.Duplicates).
		Int("pairs", stats.Pairs).
		Msg("enrollments extracted")

	return pairs, stats, nil
}

func normalize(rec core.RawEnrollment) (core.Enrollment, bool) {
	learner := strings.TrimSpace(rec.LearnerID)
	course := strings.TrimSpace(rec.CourseID)
	if learner == "" || course == "" {
		return core.Enrollment{}, false
	}
	return core.Enrollment{LearnerID: learner, CourseID: course}, true
}
