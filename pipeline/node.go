package pipeline

import (
	"context"

	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/extract"
	"github.com/rushteam/coursesim/matrix"
	"github.com/rushteam/coursesim/similarity"
)

// Kind 用于标记 Node 所处阶段，方便按阶段打点。
type Kind string

const (
	KindExtract    Kind = "extract"    // 读取并规整选课记录
	KindMatrix     Kind = "matrix"     // 构建 learner x course 交互矩阵
	KindSimilarity Kind = "similarity" // 计算课程两两相似度
	KindSelect     Kind = "select"     // 每门课程取 Top-K
	KindWrite      Kind = "write"      // 整体替换输出集合
)

// State 是一次运行中在 Node 之间传递的中间结果，每个 Node 读取上游字段并填充自己的字段。
type State struct {
	Pairs   []core.Enrollment
	Stats   extract.Stats
	Matrix  *matrix.InteractionMatrix
	Sim     *similarity.Matrix
	Entries []core.RecommendationEntry
	Write   *core.WriteResult
}

// Node 是 Pipeline 的最小单元。
type Node interface {
	Name() string
	Kind() Kind
	Process(ctx context.Context, st *State) error
}
