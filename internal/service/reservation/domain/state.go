// internal/service/reservation/domain/state.go
package domain

// Status 定义了预约的生命周期状态
type Status string

const (
	StatusRequested Status = "REQUESTED" // 已受理，等待库存结果或管理员审批
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED" // 只出现在返回给调用方的投影中，被拒绝的记录不会保留
	StatusCancelled Status = "CANCELLED"
)

// Means 是物品的受理方式
type Means string

const (
	MeansRealtime Means = "REALTIME" // 走库存事件流水线
	MeansEvaluate Means = "EVALUATE" // 人工审批
	MeansExternal Means = "EXTERNAL" // 外部系统受理，本系统不接受预约
)
