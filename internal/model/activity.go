package model

import "time"

// ActivityLog は管理操作の監査ログを表す。追記専用で更新されない。
type ActivityLog struct {
	ID         string
	ActorID    string
	ActorName  string
	Action     string
	EntityType string
	EntityID   string
	Detail     string
	CreatedAt  time.Time
}

// 監査ログのアクション名。
const (
	ActionCarCreate      = "car.create"
	ActionCarUpdate      = "car.update"
	ActionCarDelete      = "car.delete"
	ActionCarMarkSold    = "car.mark_sold"
	ActionUserActivate   = "user.activate"
	ActionUserDeactivate = "user.deactivate"
	ActionPurchaseRecord = "purchase.record"
	ActionInquiryAnswer  = "inquiry.answer"
)
