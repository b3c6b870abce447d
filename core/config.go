package core

// 批任务的默认值，组件字段为零值时使用。
const (
	// DefaultTopK 是每门课程保留的推荐数
	DefaultTopK = 5

	// DefaultMetric 是默认相似度度量
	DefaultMetric = "cosine"

	// DefaultWorkers 是相似度计算的默认并发度（单线程）
	DefaultWorkers = 1

	// DefaultInsertBatchSize 是批量写入的默认分批大小
	DefaultInsertBatchSize = 1000
)
