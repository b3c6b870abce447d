package core

import "context"

// Enrollment 是去重后的 (learner, course) 对，只表达"选过"这一存在信号。
// 两个 ID 都是不透明的可比较 token，与存储的原生 ID 类型无关。
type Enrollment struct {
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
}

// RawEnrollment 是从数据源读出的原始选课记录，可能缺字段、可能重复。
// 缺失的 ID 以空字符串表示。
type RawEnrollment struct {
	LearnerID string
	CourseID  string

	// Attrs 是数据源额外投影出来的字段，供记录过滤表达式使用
	Attrs map[string]any
}

// EnrollmentSource 是选课记录的输入协作方。
//
// 实现：
//   - store.MongoEnrollmentSource（聚合查询）
//   - store.CSVEnrollmentSource
//   - store.SliceEnrollmentSource（测试/演示）
type EnrollmentSource interface {
	// Name 返回数据源名称（用于日志/监控）
	Name() string

	// Scan 顺序读取全部记录并逐条回调；fn 返回错误时中止读取并原样返回。
	// 数据源本身不可达时返回的错误应包装 ErrSourceUnavailable。
	Scan(ctx context.Context, fn func(RawEnrollment) error) error

	// Close 释放连接
	Close(ctx context.Context) error
}
