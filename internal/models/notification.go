package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification types
const (
	NotifKpiSubmitted      = "KPI_SUBMITTED"
	NotifKpiApproved       = "KPI_APPROVED"
	NotifKpiRejected       = "KPI_REJECTED"
	NotifKpiLocked         = "KPI_LOCKED"
	NotifActualSubmitted   = "ACTUAL_SUBMITTED"
	NotifActualApproved    = "ACTUAL_APPROVED"
	NotifActualRejected    = "ACTUAL_REJECTED"
	NotifApprovalPending   = "APPROVAL_PENDING"
	NotifApprovalDelegated = "APPROVAL_DELEGATED"
	NotifApprovalReminder  = "APPROVAL_REMINDER"
	NotifApprovalOverdue   = "APPROVAL_OVERDUE"
	NotifCycleOpened       = "CYCLE_OPENED"
	NotifCycleClosed       = "CYCLE_CLOSED"
	NotifChangeRequested   = "CHANGE_REQUESTED"
	NotifReturnedToStaff   = "RETURNED_TO_STAFF"
)

// Notification priorities
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification is a fire-and-forget message addressed to one user. It never
// mutates other entities; delivery is "stored for later read" only.
type Notification struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	Type           string         `gorm:"type:varchar(40);not null;index" json:"type"`
	Title          string         `gorm:"type:varchar(255);not null" json:"title"`
	Message        string         `gorm:"type:text;not null" json:"message"`
	Priority       string         `gorm:"type:varchar(20);not null;default:'normal'" json:"priority"`
	ActionRequired bool           `gorm:"default:false" json:"actionRequired"`
	ActionURL      string         `gorm:"type:varchar(512)" json:"actionUrl,omitempty"`
	Metadata       datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	IsRead         bool           `gorm:"default:false;index" json:"isRead"`
	ReadAt         *time.Time     `json:"readAt,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// NotificationTemplate derives the stored title, priority and
// action-required flag for a notification type.
type NotificationTemplate struct {
	Title          string
	Priority       string
	ActionRequired bool
}

var notificationTemplates = map[string]NotificationTemplate{
	NotifKpiSubmitted:      {Title: "KPI submitted for approval", Priority: PriorityNormal},
	NotifKpiApproved:       {Title: "Your KPI was approved", Priority: PriorityNormal},
	NotifKpiRejected:       {Title: "Your KPI was rejected", Priority: PriorityHigh, ActionRequired: true},
	NotifKpiLocked:         {Title: "Your KPI goals are locked", Priority: PriorityNormal},
	NotifActualSubmitted:   {Title: "Actual result submitted for approval", Priority: PriorityNormal},
	NotifActualApproved:    {Title: "Your actual result was approved", Priority: PriorityNormal},
	NotifActualRejected:    {Title: "Your actual result was rejected", Priority: PriorityHigh, ActionRequired: true},
	NotifApprovalPending:   {Title: "An approval is waiting for you", Priority: PriorityHigh, ActionRequired: true},
	NotifApprovalDelegated: {Title: "An approval was delegated to you", Priority: PriorityHigh, ActionRequired: true},
	NotifApprovalReminder:  {Title: "Reminder: approval still pending", Priority: PriorityHigh, ActionRequired: true},
	NotifApprovalOverdue:   {Title: "Overdue approval in your team", Priority: PriorityUrgent},
	NotifCycleOpened:       {Title: "New performance cycle: set your KPIs", Priority: PriorityHigh, ActionRequired: true},
	NotifCycleClosed:       {Title: "Performance cycle closed", Priority: PriorityNormal},
	NotifChangeRequested:   {Title: "Changes requested on your KPI", Priority: PriorityHigh, ActionRequired: true},
	NotifReturnedToStaff:   {Title: "Your submission was returned", Priority: PriorityHigh, ActionRequired: true},
}

// TemplateFor returns the static template for a notification type. Unknown
// types fall back to a generic normal-priority template so dispatch never
// fails on a new event type.
func TemplateFor(notifType string) NotificationTemplate {
	if tpl, ok := notificationTemplates[notifType]; ok {
		return tpl
	}
	return NotificationTemplate{Title: "Notification", Priority: PriorityNormal}
}
