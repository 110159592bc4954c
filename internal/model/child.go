package model

import "time"

// ChildProfile rows are owned by the parent portal. The quota engine reads
// them to validate pairing targets and compute limits; it never writes them.
type ChildProfile struct {
	ID                       string    `db:"id" json:"id"`
	ParentID                 string    `db:"parent_id" json:"parentId"`
	Name                     string    `db:"name" json:"name"`
	Age                      int       `db:"age" json:"age"`
	DailyReadingLimitMinutes int       `db:"daily_reading_limit_minutes" json:"dailyReadingLimitMinutes"`
	AvatarImageURL           string    `db:"avatar_image_url" json:"avatarImageUrl,omitempty"`
	IsActive                 bool      `db:"is_active" json:"isActive"`
	CreatedAt                time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time `db:"updated_at" json:"updatedAt"`
}

// ChildSummary is the slice of a profile exposed across the pairing boundary.
type ChildSummary struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	Age                      int    `json:"age"`
	DailyReadingLimitMinutes int    `json:"dailyReadingLimitMinutes"`
}

func (c *ChildProfile) Summary() ChildSummary {
	return ChildSummary{
		ID:                       c.ID,
		Name:                     c.Name,
		Age:                      c.Age,
		DailyReadingLimitMinutes: c.DailyReadingLimitMinutes,
	}
}
