package pipeline

import (
	"context"
	"errors"

	"github.com/rushteam/coursesim/core"
	"github.com/rushteam/coursesim/extract"
	"github.com/rushteam/coursesim/matrix"
	"github.com/rushteam/coursesim/similarity"
	"github.com/rushteam/coursesim/writer"
)

// ExtractNode 读取选课记录
type ExtractNode struct {
	Extractor *extract.Extractor
}

func (n *ExtractNode) Name() string { return n.Extractor.Name() }
func (n *ExtractNode) Kind() Kind   { return KindExtract }

func (n *ExtractNode) Process(ctx context.Context, st *State) error {
	pairs, stats, err := n.Extractor.Extract(ctx)
	st.Stats = stats
	if err != nil {
		return err
	}
	st.Pairs = pairs
	return nil
}

// MatrixNode 构建交互矩阵
type MatrixNode struct{}

func (n *MatrixNode) Name() string { return "matrix.build" }
func (n *MatrixNode) Kind() Kind   { return KindMatrix }

func (n *MatrixNode) Process(ctx context.Context, st *State) error {
	if len(st.Pairs) == 0 {
		return core.ErrEmptyDataset
	}
	st.Matrix = matrix.Build(st.Pairs)
	return nil
}

// SimilarityNode 计算课程相似度
type SimilarityNode struct {
	Engine *similarity.Engine
}

func (n *SimilarityNode) Name() string { return n.Engine.Name() }
func (n *SimilarityNode) Kind() Kind   { return KindSimilarity }

func (n *SimilarityNode) Process(ctx context.Context, st *State) error {
	if st.Matrix == nil {
		return errors.New("similarity: interaction matrix not built")
	}
	sim, err := n.Engine.Compute(ctx, st.Matrix)
	if err != nil {
		return err
	}
	st.Sim = sim
	return nil
}

// SelectNode 生成推荐表
type SelectNode struct {
	// TopK 默认 core.DefaultTopK
	TopK int
}

func (n *SelectNode) Name() string { return "select.topk" }
func (n *SelectNode) Kind() Kind   { return KindSelect }

func (n *SelectNode) Process(ctx context.Context, st *State) error {
	if st.Sim == nil {
		return errors.New("select: similarity matrix not computed")
	}
	st.Entries = writer.Select(st.Sim, n.TopK)
	return nil
}

// WriteNode 整体替换输出集合
type WriteNode struct {
	Writer *writer.Writer
}

func (n *WriteNode) Name() string { return n.Writer.Name() }
func (n *WriteNode) Kind() Kind   { return KindWrite }

func (n *WriteNode) Process(ctx context.Context, st *State) error {
	res, err := n.Writer.Write(ctx, st.Entries)
	st.Write = res
	return err
}

var (
	_ Node = (*ExtractNode)(nil)
	_ Node = (*MatrixNode)(nil)
	_ Node = (*SimilarityNode)(nil)
	_ Node = (*SelectNode)(nil)
	_ Node = (*WriteNode)(nil)
)
