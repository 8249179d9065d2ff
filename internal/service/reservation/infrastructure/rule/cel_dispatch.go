package rule

import (
	"context"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"govportal/internal/service/reservation/domain/port"
)

// CELDispatchPolicy 用一条 CEL 表达式决定实时预约是否走同步直连路径，
// 可用变量为 role、category、means 与 quantity。
type CELDispatchPolicy struct {
	expr    string
	program cel.Program
}

// NewCELDispatchPolicy 在启动时编译表达式，语法或类型错误直接返回。
func NewCELDispatchPolicy(expr string) (*CELDispatchPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("role", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("means", cel.StringType),
		cel.Variable("quantity", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "invalid dispatch rule %q", expr)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build dispatch rule %q", expr)
	}
	return &CELDispatchPolicy{expr: expr, program: prg}, nil
}

func (p *CELDispatchPolicy) UseDirectPath(ctx context.Context, in port.DispatchInput) (bool, error) {
	out, _, err := p.program.ContextEval(ctx, map[string]interface{}{
		"role":     in.Role,
		"category": in.Category,
		"means":    in.Means,
		"quantity": int64(in.Quantity),
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to evaluate dispatch rule %q", p.expr)
	}
	direct, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("dispatch rule %q returned %T, want bool", p.expr, out.Value())
	}
	return direct, nil
}
