package model

type UserProfile struct {
	UserID            string `gorm:"column:user_id;primaryKey"`
	DisplayName       string `gorm:"column:display_name;type:text"`
	PackagesCollected int    `gorm:"column:packages_collected;not null;default:0"`
	PackagesDelegated int    `gorm:"column:packages_delegated;not null;default:0"`
	NeighborsHelped   int    `gorm:"column:neighbors_helped;not null;default:0"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
