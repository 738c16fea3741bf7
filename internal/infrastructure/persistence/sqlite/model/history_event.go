package model

// HistoryEvent rows are append-only. The dedupe index makes re-inserting a
// salvaged event a no-op, which keeps watchdog replays safe.
type HistoryEvent struct {
	EventID    uint64 `gorm:"column:event_id;primaryKey;autoIncrement"`
	RecordID   string `gorm:"column:record_id;not null;index;uniqueIndex:idx_history_dedupe,priority:1"`
	OccurredAt string `gorm:"column:occurred_at;type:text;not null;uniqueIndex:idx_history_dedupe,priority:2"`
	Action     string `gorm:"column:action;not null;uniqueIndex:idx_history_dedupe,priority:3"`
	ActorID    string `gorm:"column:actor_id;not null;uniqueIndex:idx_history_dedupe,priority:4"`
	ActorName  string `gorm:"column:actor_name;type:text"`
	Details    string `gorm:"column:details;type:text"`
}

func (HistoryEvent) TableName() string {
	return "history_events"
}
