// Package similarity 计算课程之间的两两相似度（Item-Item）。
//
// 核心思想："被同一批学员选过的课程，相互相似"
//
// 算法流程：
//  1. 交互矩阵转置为课程×学员
//  2. 对每门课程 i，沿其学员的课程列表累计共同学员数 co(i, j)，即二值向量的点积
//  3. sim(i, j) = co(i, j) / sqrt(|i| * |j|)
//
// 点积是整数计数，因此结果严格对称，且与输入顺序无关。
package similarity

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/matrix"
)

// 支持的相似度度量
const (
	MetricCosine  = "cosine"
	MetricJaccard = "jaccard"
)

// Engine 是相似度计算引擎。精确两两计算，不做近似或降维。
type Engine struct {
	// Metric 相似度度量方式：cosine / jaccard，默认 cosine
	Metric string

	// Workers 并发计算的 worker 数，每个 worker 负责互不相交的行；默认 1
	Workers int

	Logger zerolog.Logger
}

func (e *Engine) Name() string { return "similarity." + e.metric() }

func (e *Engine) metric() string {
	if e.Metric == "" {
		return core.DefaultMetric
	}
	return e.Metric
}

// ValidMetric 检查度量名称是否受支持
func ValidMetric(metric string) bool {
	switch metric {
	case "", MetricCosine, MetricJaccard:
		return true
	default:
		return false
	}
}

// Compute 计算交互矩阵中全部课程的两两相似度。
func (e *Engine) Compute(ctx context.Context, m *matrix.InteractionMatrix) (*Matrix, error) {
	metric := e.metric()
	if !ValidMetric(metric) {
		return nil, core.NewDomainError(core.ModuleSimilarity, core.ErrorCodeInvalidInput,
			fmt.Sprintf("similarity: unsupported metric %q", metric))
	}
	score := cosine
	if metric == MetricJaccard {
		score = jaccard
	}

	cv := m.Transpose()
	n := len(cv.Courses)
	values := make([][]float64, n)
	if n == 0 {
		return newMatrix(metric, cv.Courses, values), nil
	}

	workers := e.Workers
	if workers <= 0 {
		workers = core.DefaultWorkers
	}
	if workers > n {
		workers = n
	}

	start := time.Now()
	eg, egCtx := errgroup.WithContext(ctx)
	chunkSize := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunkSize
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}

		eg.Go(func() error {
			// co 是本 worker 的共同学员计数缓冲，每行结束后按 touched 清零
			co := make([]int, n)
			touched := make([]int, 0, 64)
			for i := lo; i < hi; i++ {
				if err := egCtx.Err(); err != nil {
					return err
				}
				values[i] = computeRow(cv, i, co, touched[:0], score)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	e.Logger.Debug().
		Str("metric", metric).
		Int("courses", n).
		Int("learners", len(cv.Learners)).
		Int("workers", workers).
		Dur("elapsed", time.Since(start)).
		Msg("similarity matrix computed")

	return newMatrix(metric, cv.Courses, values), nil
}

// computeRow 计算第 i 行。co 调用前必须全为 0，返回前恢复为 0。
func computeRow(cv *matrix.CourseVectors, i int, co []int, touched []int, score func(co, ni, nj int) float64) []float64 {
	row := make([]float64, len(cv.Courses))
	for _, l := range cv.Members[i] {
		for _, j := range cv.ByLearner[l] {
			if co[j] == 0 {
				touched = append(touched, j)
			}
			co[j]++
		}
	}

	ni := len(cv.Members[i])
	for _, j := range touched {
		row[j] = score(co[j], ni, len(cv.Members[j]))
		co[j] = 0
	}
	if ni > 0 {
		row[i] = 1.0
	}
	return row
}

// cosine 二值向量的余弦相似度：|A∩B| / sqrt(|A|·|B|)。
// 零向量与任何向量的相似度为 0。
func cosine(co, ni, nj int) float64 {
	if ni == 0 || nj == 0 {
		return 0
	}
	return float64(co) / math.Sqrt(float64(ni)*float64(nj))
}

// jaccard 二值向量的 Jaccard 相似度：|A∩B| / |A∪B|。
func jaccard(co, ni, nj int) float64 {
	union := ni + nj - co
	if union <= 0 {
		return 0
	}
	return float64(co) / float64(union)
}
