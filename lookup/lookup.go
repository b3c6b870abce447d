// Package lookup 是推荐表的读取端：按课程查相似课程，按学员已选课程合并推荐。
package lookup

import (
	"context"
	"sort"
	"strings"

	"github.com/rushteam/coursesim/core"
)

// DefaultLimit 是 ForLearner 未指定数量时返回的推荐数
const DefaultLimit = 10

// Service 从推荐表读取推荐，不访问选课记录。
type Service struct {
	Reader core.RecommendationReader
}

func (s *Service) Name() string { return "lookup" }

// Similar 返回与 courseID 最相似的课程（按分数降序）。
// 表中没有该课程时返回空结果而不是错误。
func (s *Service) Similar(ctx context.Context, courseID string) ([]core.Recommendation, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, nil
	}
	entry, err := s.Reader.Get(ctx, courseID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return entry.Recommendations, nil
}

// ForLearner 合并学员已选课程的推荐：同一候选课程的分数相加，
// 排除已选课程，按分数降序、课程 ID 升序取前 limit 个（limit <= 0 时为 DefaultLimit）。
func (s *Service) ForLearner(ctx context.Context, enrolled []string, limit int) ([]core.Recommendation, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	owned := make(map[string]struct{}, len(enrolled))
	courses := make([]string, 0, len(enrolled))
	for _, c := range enrolled {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := owned[c]; ok {
			continue
		}
		owned[c] = struct{}{}
		courses = append(courses, c)
	}
	if len(courses) == 0 {
		return nil, nil
	}

	entries, err := s.entries(ctx, courses)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, e := range entries {
		for _, r := range e.Recommendations {
			if _, ok := owned[r.CourseID]; ok {
				continue
			}
			scores[r.CourseID] += r.Score
		}
	}

	out := make([]core.Recommendation, 0, len(scores))
	for c, sc := range scores {
		out = append(out, core.Recommendation{CourseID: c, Score: sc})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CourseID < out[j].CourseID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// entries 优先使用批量读取，否则逐个 Get 并跳过不存在的课程。
func (s *Service) entries(ctx context.Context, courses []string) ([]core.RecommendationEntry, error) {
	if br, ok := s.Reader.(core.RecommendationBatchReader); ok {
		return br.GetMany(ctx, courses)
	}

	out := make([]core.RecommendationEntry, 0, len(courses))
	for _, c := range courses {
		e, err := s.Reader.Get(ctx, c)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}
