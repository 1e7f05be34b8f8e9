package domain

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Valid reports whether the role is one of the known values.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ChartType identifies the kind of chart calculation.
type ChartType string

const (
	ChartTypeBirth       ChartType = "birth_chart"
	ChartTypeSolarReturn ChartType = "solar_return"
	ChartTypeLunarReturn ChartType = "lunar_return"
	ChartTypeTransit     ChartType = "transit"
	ChartTypeSynastry    ChartType = "synastry"
)

// HouseSystem selects the house division scheme.
type HouseSystem string

const (
	HousePlacidus  HouseSystem = "placidus"
	HouseKoch      HouseSystem = "koch"
	HousePorphyry  HouseSystem = "porphyry"
	HouseEqual     HouseSystem = "equal"
	HouseWholeSign HouseSystem = "whole_sign"
)

// ZodiacSystem selects tropical or sidereal reckoning.
type ZodiacSystem string

const (
	ZodiacTropical ZodiacSystem = "tropical"
	ZodiacSidereal ZodiacSystem = "sidereal"
)

// AdminRole is the administrative role attached to an admin user.
type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "super_admin"
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleModerator  AdminRole = "moderator"
	AdminRoleSupport    AdminRole = "support"
)
