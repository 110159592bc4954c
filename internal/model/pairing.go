package model

import "time"

type PairingCode struct {
	ID             string            `db:"id" json:"id"`
	Code           string            `db:"code" json:"code"`
	ParentID       string            `db:"parent_id" json:"parentId"`
	ChildProfileID string            `db:"child_profile_id" json:"childProfileId"`
	Status         PairingCodeStatus `db:"status" json:"status"`
	ExpiresAt      time.Time         `db:"expires_at" json:"expiresAt"`
	UsedAt         *time.Time        `db:"used_at" json:"usedAt,omitempty"`
	PairedDeviceID *string           `db:"paired_device_id" json:"pairedDeviceId,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updatedAt"`
}

type CreatePairingCodeParams struct {
	Code           string
	ParentID       string
	ChildProfileID string
	ExpiresAt      time.Time
}

// PairingCodeSummary is returned to the parent after issuing a code.
type PairingCodeSummary struct {
	Code      string       `json:"code"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Child     ChildSummary `json:"childProfile"`
}
