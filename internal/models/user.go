package models

// Membership tiers that grant a refund bonus.
const (
	TierStandard = "standard"
	TierPremium  = "premium"
	TierVIP      = "vip"
)

// User represents an authenticated customer.
type User struct {
	BaseModel
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Phone          string  `gorm:"uniqueIndex" json:"phone"`
	Email          string  `gorm:"index" json:"email"`
	DisplayName    string  `json:"display_name"`
	PasswordHash   string  `json:"-"`
	MembershipTier string  `gorm:"default:standard" json:"membership_tier"`
	IsAdmin        bool    `json:"is_admin"`
	Orders         []Order `json:"orders,omitempty"`
}
