package writer

import (
	"sort"

	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/similarity"
)

// Select 为相似度矩阵中的每门课程选出 TopK 相似课程。
//
// 规则：
//   - 排除课程自身
//   - 排除 score <= 0 的候选（没有共同学员不算推荐）
//   - 按 score 降序，score 相同时按课程 ID 升序
//   - 过滤后没有候选的课程不出现在结果中
//
// 结果按课程 ID 升序排列。k <= 0 时使用 core.DefaultTopK。
func Select(sim *similarity.Matrix, k int) []core.RecommendationEntry {
	if k <= 0 {
		k = core.DefaultTopK
	}

	courses := sim.Courses()
	order := make([]int, len(courses))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return courses[order[a]] < courses[order[b]] })

	out := make([]core.RecommendationEntry, 0, len(courses))
	for _, i := range order {
		recs := topK(courses, sim.Row(i), i, k)
		if len(recs) == 0 {
			continue
		}
		out = append(out, core.RecommendationEntry{
			CourseID:        courses[i],
			Recommendations: recs,
		})
	}
	return out
}

func topK(courses []string, row []float64, self, k int) []core.Recommendation {
	candidates := make([]core.Recommendation, 0)
	for j, score := range row {
		if j == self || !(score > 0) {
			continue
		}
		candidates = append(candidates, core.Recommendation{CourseID: courses[j], Score: score})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(a, b int) bool { return ranksBefore(candidates[a], candidates[b]) })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// ranksBefore 是推荐列表的排序规则：score 降序，相同 score 按课程 ID 升序。
func ranksBefore(a, b core.Recommendation) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.CourseID < b.CourseID
}
