package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/coursesim/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("learner_id", cel.StringType),
		cel.Variable("course_id", cel.StringType),
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Predicate 是选课记录过滤表达式，使用 CEL (Common Expression Language) 实现。
// 表达式只编译一次，Match 可并发调用。
//
// 可用变量：
//   - learner_id：学员 ID（string）
//   - course_id：课程 ID（string）
//   - attrs：数据源额外投影的字段（map）
//
// 示例：
//   - `attrs.status != "refunded"`
//   - `!course_id.startsWith("draft-")`
//   - `"source" in attrs && attrs.source == "paypal"`
type Predicate struct {
	expr string
	prg  cel.Program
}

// Compile 编译过滤表达式；空表达式返回 nil（表示不过滤）。
func Compile(expr string) (*Predicate, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Predicate{expr: expr, prg: prg}, nil
}

// String 返回原始表达式
func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Match 对一条记录求值。nil Predicate 恒为 true。
func (p *Predicate) Match(rec core.RawEnrollment) (bool, error) {
	if p == nil {
		return true, nil
	}

	attrs := rec.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	out, _, err := p.prg.Eval(map[string]any{
		"learner_id": rec.LearnerID,
		"course_id":  rec.CourseID,
		"attrs":      attrs,
	})
	if err != nil {
		// 访问不存在的 attrs key 会报错，表达式应先用 `"key" in attrs` 判断
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}
