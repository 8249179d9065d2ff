package port

import "context"

// DispatchInput 是分派规则可以使用的变量
type DispatchInput struct {
	Role     string
	Category string
	Means    string
	Quantity int
}

// DispatchPolicy 决定一次实时预约是否走同步直连路径。
type DispatchPolicy interface {
	UseDirectPath(ctx context.Context, in DispatchInput) (bool, error)
}
