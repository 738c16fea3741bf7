package model

type Notification struct {
	NotificationID string `gorm:"column:notification_id;primaryKey"`
	UserID         string `gorm:"column:user_id;not null;index"`
	Title          string `gorm:"column:title;type:text;not null"`
	Message        string `gorm:"column:message;type:text;not null"`
	Kind           string `gorm:"column:kind;not null"`
	IsRead         bool   `gorm:"column:is_read;not null;default:0"`
	CreatedAt      string `gorm:"column:created_at;type:text;not null"`
}

func (Notification) TableName() string {
	return "notifications"
}
