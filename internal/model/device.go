package model

import "time"

// Device is the durable record of a reading client. DeviceID is supplied by
// the client and stable per browser/physical instance; it is an identity
// claim, not a secret. A device belongs to exactly one parent for its
// lifetime.
type Device struct {
	ID                   string       `db:"id" json:"id"`
	ParentID             string       `db:"parent_id" json:"parentId"`
	ActiveChildProfileID string       `db:"active_child_profile_id" json:"activeChildProfileId"`
	DeviceID             string       `db:"device_id" json:"deviceId"`
	DeviceName           string       `db:"device_name" json:"deviceName"`
	Status               DeviceStatus `db:"status" json:"status"`
	PairedAt             time.Time    `db:"paired_at" json:"pairedAt"`
	LastSeenAt           *time.Time   `db:"last_seen_at" json:"lastSeenAt,omitempty"`
	DailyUsageDate       string       `db:"daily_usage_date" json:"dailyUsageDate"`
	DailyUsageMinutes    int          `db:"daily_usage_minutes" json:"dailyUsageMinutes"`
	CreatedAt            time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updatedAt"`
}

// UpsertDeviceParams carries the fields a successful claim writes. Repairing
// an existing device keeps its prior name when DeviceName is blank and its
// prior paired_at timestamp.
type UpsertDeviceParams struct {
	DeviceID             string
	ParentID             string
	ActiveChildProfileID string
	DeviceName           string
	DailyUsageDate       string
}

// DeviceWithChild is a device row joined with the summary columns of its
// bound child profile, used by parent-portal listings.
type DeviceWithChild struct {
	Device
	ChildName       string `db:"child_name"`
	ChildAge        int    `db:"child_age"`
	ChildDailyLimit int    `db:"child_daily_limit"`
	ChildIsActive   bool   `db:"child_is_active"`
}

// UsageDebit is the outcome of the atomic quota debit. Locked means the
// counter was already at or past the limit and nothing was debited.
type UsageDebit struct {
	UsedBefore int  `db:"used_before"`
	UsedAfter  int  `db:"used_after"`
	Locked     bool `db:"-"`
}

// DeviceSummary is the parent-portal view of a device, joined with the
// summary of its currently bound child.
type DeviceSummary struct {
	ID                string       `json:"id"`
	DeviceID          string       `json:"deviceId"`
	DeviceName        string       `json:"deviceName"`
	Status            DeviceStatus `json:"status"`
	PairedAt          time.Time    `json:"pairedAt"`
	LastSeenAt        *time.Time   `json:"lastSeenAt,omitempty"`
	DailyUsageDate    string       `json:"dailyUsageDate"`
	DailyUsageMinutes int          `json:"dailyUsageMinutes"`
	ActiveChild       ChildSummary `json:"activeChildProfile"`
}
