// Package matrix 构建学员×课程的二值交互矩阵。
//
// 矩阵以稀疏形式保存（每个学员的课程下标列表、每门课程的学员下标列表），
// 只有调用 Dense 时才物化 O(learners × courses) 的稠密表。
package matrix

import (
	"sort"

	"github.com/rushteam/coursesim/core"
)

// InteractionMatrix 是学员×课程的二值矩阵：选过为 1，否则为 0。
//
// 不变式：
//   - 行/列下标集合只来自观测到的 (learner, course) 对
//   - 每一行至少有一个非零格
//   - 行、列按 ID 字典序排列，与输入顺序无关
type InteractionMatrix struct {
	learners []string
	courses  []string

	learnerIdx map[string]int
	courseIdx  map[string]int

	// rows[l] 是学员 l 选过的课程下标（升序）
	rows [][]int
	// cols[c] 是选过课程 c 的学员下标（升序）
	cols [][]int

	nnz int
}

// Build 从 (learner, course) 对构建交互矩阵。重复的对只计一次。
func Build(pairs []core.Enrollment) *InteractionMatrix {
	learnerSet := make(map[string]struct{})
	courseSet := make(map[string]struct{})
	for _, p := range pairs {
		learnerSet[p.LearnerID] = struct{}{}
		courseSet[p.CourseID] = struct{}{}
	}

	m := &InteractionMatrix{
		learners: sortedKeys(learnerSet),
		courses:  sortedKeys(courseSet),
	}
	m.learnerIdx = indexOf(m.learners)
	m.courseIdx = indexOf(m.courses)

	cells := make(map[[2]int]struct{}, len(pairs))
	m.rows = make([][]int, len(m.learners))
	m.cols = make([][]int, len(m.courses))
	for _, p := range pairs {
		l, c := m.learnerIdx[p.LearnerID], m.courseIdx[p.CourseID]
		if _, ok := cells[[2]int{l, c}]; ok {
			continue
		}
		cells[[2]int{l, c}] = struct{}{}
		m.rows[l] = append(m.rows[l], c)
		m.cols[c] = append(m.cols[c], l)
	}
	for _, r := range m.rows {
		sort.Ints(r)
	}
	for _, c := range m.cols {
		sort.Ints(c)
	}
	m.nnz = len(cells)
	return m
}

// Learners 返回行 ID（学员）
func (m *InteractionMatrix) Learners() []string { return m.learners }

// Courses 返回列 ID（课程）
func (m *InteractionMatrix) Courses() []string { return m.courses }

// Shape 返回 (学员数, 课程数)
func (m *InteractionMatrix) Shape() (int, int) { return len(m.learners), len(m.courses) }

// NonZero 返回非零格数量
func (m *InteractionMatrix) NonZero() int { return m.nnz }

// Value 返回 (learner, course) 格的值；未观测到的 ID 同样返回 0。
func (m *InteractionMatrix) Value(learnerID, courseID string) float64 {
	l, ok := m.learnerIdx[learnerID]
	if !ok {
		return 0
	}
	c, ok := m.courseIdx[courseID]
	if !ok {
		return 0
	}
	row := m.rows[l]
	i := sort.SearchInts(row, c)
	if i < len(row) && row[i] == c {
		return 1
	}
	return 0
}

// LearnerCourses 返回第 l 行（学员）的非零课程下标
func (m *InteractionMatrix) LearnerCourses(l int) []int { return m.rows[l] }

// Dense 物化稠密矩阵，行 = Learners()，列 = Courses()。仅用于调试与测试。
func (m *InteractionMatrix) Dense() [][]float64 {
	out := make([][]float64, len(m.learners))
	for l, row := range m.rows {
		out[l] = make([]float64, len(m.courses))
		for _, c := range row {
			out[l][c] = 1
		}
	}
	return out
}

// CourseVectors 是交互矩阵的转置视图：课程×学员。
type CourseVectors struct {
	// Courses 是行 ID
	Courses []string
	// Learners 是列 ID
	Learners []string
	// Members[c] 是课程 c 的学员下标（升序），即该行的非零列
	Members [][]int
	// ByLearner[l] 是学员 l 的课程下标（升序），用于按共同学员累计点积
	ByLearner [][]int
}

// Transpose 返回课程×学员视图，与原矩阵共享底层切片，调用方不得修改。
func (m *InteractionMatrix) Transpose() *CourseVectors {
	return &CourseVectors{
		Courses:   m.courses,
		Learners:  m.learners,
		Members:   m.cols,
		ByLearner: m.rows,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func indexOf(ids []string) map[string]int {
	idx := make(map[string]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	return idx
}
