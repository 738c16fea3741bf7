package model

type DelegationRecord struct {
	RecordID      string `gorm:"column:record_id;primaryKey"`
	RequesterID   string `gorm:"column:requester_id;not null;index:idx_records_group,priority:1"`
	RequesterName string `gorm:"column:requester_name;type:text;not null"`
	DelegateID    string `gorm:"column:delegate_id;not null;index"`
	DelegateName  string `gorm:"column:delegate_name;type:text;not null"`
	DeliveryLabel string `gorm:"column:delivery_label;type:text;not null;index:idx_records_group,priority:2"`

	WindowDate string `gorm:"column:window_date;type:text;not null"`
	WindowFrom string `gorm:"column:window_from;type:text;not null"`
	WindowTo   string `gorm:"column:window_to;type:text;not null"`

	OriginalDate string `gorm:"column:original_date;type:text"`
	OriginalFrom string `gorm:"column:original_from;type:text"`
	OriginalTo   string `gorm:"column:original_to;type:text"`

	Status         string `gorm:"column:status;not null;index"`
	Notes          string `gorm:"column:notes;type:text"`
	Code           string `gorm:"column:code;type:text"`
	Rating         int    `gorm:"column:rating;not null;default:0"`
	LastEditorName string `gorm:"column:last_editor_name;type:text"`

	CreatedAt string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (DelegationRecord) TableName() string {
	return "delegation_records"
}
