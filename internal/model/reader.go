package model

// ReaderContext is the request-scoped snapshot of a device's pairing and
// quota state. It is computed fresh on every request and never cached.
type ReaderContext struct {
	IsPaired          bool   `json:"isPaired"`
	DeviceID          string `json:"deviceId"`
	ChildProfileID    string `json:"childProfileId"`
	ChildName         string `json:"childName"`
	ChildAge          int    `json:"childAge"`
	DailyLimitMinutes int    `json:"dailyLimitMinutes"`
	UsedMinutes       int    `json:"usedMinutes"`
	RemainingMinutes  int    `json:"remainingMinutes"`
	IsLocked          bool   `json:"isLocked"`
}

// AllowsAge reports whether the bound child's age falls inside a story's
// [minAge, maxAge] band. An unpaired context applies no restriction.
func (c *ReaderContext) AllowsAge(minAge, maxAge int) bool {
	if c == nil || !c.IsPaired {
		return true
	}
	return c.ChildAge >= minAge && c.ChildAge <= maxAge
}

// UsageResult reports the outcome of a consume call. ConsumedMinutes may be
// less than requested: the debit is clamped to the remaining balance.
type UsageResult struct {
	ConsumedMinutes   int  `json:"consumedMinutes"`
	UsedMinutes       int  `json:"usedMinutes"`
	RemainingMinutes  int  `json:"remainingMinutes"`
	DailyLimitMinutes int  `json:"dailyLimitMinutes"`
	IsLocked          bool `json:"isLocked"`
}
