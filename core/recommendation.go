package core

import "context"

// Recommendation 是推荐列表中的一个候选课程。
type Recommendation struct {
	CourseID string  `json:"course_id"`
	Score    float64 `json:"score"`
}

// RecommendationEntry 是推荐表的一行：key 为课程 ID，value 为按分数降序的推荐列表。
//
// 不变式：
//   - len(Recommendations) <= K
//   - 每个 Score > 0
//   - 不包含 CourseID 自身
type RecommendationEntry struct {
	CourseID        string           `json:"course_id"`
	Recommendations []Recommendation `json:"recommendations"`
}

// FailedRow 记录批量写入时失败的一行。
type FailedRow struct {
	CourseID string `json:"course_id"`
	Reason   string `json:"reason"`
}

// WriteResult 是一次批量写入的结果；已成功的行不会因其他行失败而回滚。
type WriteResult struct {
	Inserted int
	Failed   []FailedRow
}

// RecommendationSink 是推荐表的输出协作方。
//
// Clear 与 BulkInsert 之间没有事务保证：Clear 成功而 BulkInsert 失败时，
// 下游会看到一张空表直到下一次成功运行。
type RecommendationSink interface {
	Name() string

	// Clear 清空本输出集合的全部行
	Clear(ctx context.Context) error

	// BulkInsert 批量写入；部分失败通过 WriteResult.Failed 报告，
	// 只有整体不可用时才返回 error
	BulkInsert(ctx context.Context, entries []RecommendationEntry) (*WriteResult, error)
}

// RecommendationReader 是推荐表的读取方（下游查询侧）。
type RecommendationReader interface {
	// Get 读取某课程的推荐；不存在时返回 ErrEntryNotFound，调用方应视同"无推荐"
	Get(ctx context.Context, courseID string) (*RecommendationEntry, error)
}

// RecommendationBatchReader 是可选的批量读取扩展，结果只包含存在的课程。
type RecommendationBatchReader interface {
	GetMany(ctx context.Context, courseIDs []string) ([]RecommendationEntry, error)
}

// RecommendationChecker 是可选扩展：在 Clear 之前检查一行能否被该存储接受（如 ID 格式）。
type RecommendationChecker interface {
	Check(entry RecommendationEntry) error
}

// RecommendationStore 同时支持写入与读取。
type RecommendationStore interface {
	RecommendationSink
	RecommendationReader
	Close(ctx context.Context) error
}

var (
	// ErrEntryNotFound 表示推荐表中没有该课程的行
	ErrEntryNotFound = NewDomainError(ModuleSink, ErrorCodeNotFound, "sink: recommendation entry not found")

	// ErrNothingWritten 表示推荐表非空但没有任何一行能写入输出集合
	ErrNothingWritten = NewDomainError(ModuleSink, ErrorCodeInvalidInput, "sink: no recommendation entry written")
)
