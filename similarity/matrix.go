package similarity

// Matrix 是课程×课程的相似度矩阵（对称，对角线为 1）。
type Matrix struct {
	metric  string
	courses []string
	index   map[string]int
	values  [][]float64
}

func newMatrix(metric string, courses []string, values [][]float64) *Matrix {
	index := make(map[string]int, len(courses))
	for i, c := range courses {
		index[c] = i
	}
	return &Matrix{metric: metric, courses: courses, index: index, values: values}
}

// Metric 返回计算所用的度量名称
func (m *Matrix) Metric() string { return m.metric }

// Courses 返回行/列 ID，顺序与 At 的下标一致
func (m *Matrix) Courses() []string { return m.courses }

// Size 返回课程数
func (m *Matrix) Size() int { return len(m.courses) }

// At 返回第 i 行第 j 列的相似度
func (m *Matrix) At(i, j int) float64 { return m.values[i][j] }

// Row 返回第 i 行，调用方不得修改
func (m *Matrix) Row(i int) []float64 { return m.values[i] }

// Index 返回课程 ID 的下标
func (m *Matrix) Index(courseID string) (int, bool) {
	i, ok := m.index[courseID]
	return i, ok
}

// Score 按课程 ID 查询相似度；任一 ID 不存在时返回 (0, false)
func (m *Matrix) Score(a, b string) (float64, bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	return m.values[i][j], true
}
