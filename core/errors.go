package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 可携带底层错误（Err），支持 errors.Is / errors.As
//
// 使用场景：
//   - Source 错误：UNAVAILABLE（输入库不可达）
//   - Sink 错误：UNAVAILABLE（输出库不可达）
//   - Extract 错误：EMPTY_DATASET（没有有效的选课记录）
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "source", "sink", "extract"）
	Err     error  // 底层错误，可为 nil
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 按 Module + Code 匹配，使 errors.Is(Wrap(err), ErrXXX) 成立。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// Wrap 以当前错误为模板，附带底层错误生成新错误。
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{Module: e.Module, Code: e.Code, Message: e.Message, Err: err}
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeEmptyDataset  = "EMPTY_DATASET"  // 数据不足
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore      = "store"      // KV 存储
	ModuleSource     = "source"     // 选课记录输入
	ModuleSink       = "sink"       // 推荐表输出
	ModuleExtract    = "extract"    // 选课记录抽取
	ModuleSimilarity = "similarity" // 相似度计算
	ModuleConfig     = "config"     // 配置
)

// 预定义错误
var (
	// ErrSourceUnavailable 表示选课记录来源不可达，批任务在任何写入前终止
	ErrSourceUnavailable = NewDomainError(ModuleSource, ErrorCodeUnavailable, "source: unavailable")

	// ErrSinkUnavailable 表示推荐表存储不可达
	ErrSinkUnavailable = NewDomainError(ModuleSink, ErrorCodeUnavailable, "sink: unavailable")

	// ErrEmptyDataset 表示抽取后没有任何有效的 (learner, course) 对
	ErrEmptyDataset = NewDomainError(ModuleExtract, ErrorCodeEmptyDataset, "extract: no valid enrollment pairs")

	// ErrInvalidConfig 表示配置校验失败
	ErrInvalidConfig = NewDomainError(ModuleConfig, ErrorCodeInvalidInput, "config: invalid")
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE（输入或输出存储不可达）
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsEmptyDataset 检查错误是否为 EMPTY_DATASET
func IsEmptyDataset(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeEmptyDataset
	}
	return false
}
