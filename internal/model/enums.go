package model

type PairingCodeStatus string

const (
	PairingCodePending PairingCodeStatus = "pending"
	PairingCodeUsed    PairingCodeStatus = "used"
	PairingCodeExpired PairingCodeStatus = "expired"
	PairingCodeRevoked PairingCodeStatus = "revoked"
)

// Terminal reports whether the status is final. Terminal codes are never
// flipped back to pending; the code value itself may be reissued later.
func (s PairingCodeStatus) Terminal() bool {
	return s == PairingCodeUsed || s == PairingCodeExpired || s == PairingCodeRevoked
}

type DeviceStatus string

const (
	DeviceStatusPaired   DeviceStatus = "paired"
	DeviceStatusDisabled DeviceStatus = "disabled"
)
