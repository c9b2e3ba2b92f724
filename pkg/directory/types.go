// Package directory provides typed access to the remote lab-facility
// directory: users, affiliation units, lab systems, user rights and
// credential checks.
//
// Lookups distinguish three outcomes: a value, absence (nil, nil), and a
// *RemoteError for transport or server failures. Absence is a normal
// result and must never be reported as an error, because higher layers
// translate the two differently (absent user vs. directory outage).
package directory

// User is an identity record in the facility directory.
//
// Login is always present; a directory that returns a user without a
// login is rejected at decode time.
type User struct {
	Login       string `json:"login"`
	FirstName   string `json:"fname"`
	MiddleName  string `json:"mname,omitempty"`
	LastName    string `json:"lname"`
	Email       string `json:"email,omitempty"`
	Institution string `json:"institution,omitempty"`
	Active      bool   `json:"active"`

	// UnitKey references the user's affiliation unit, empty when the
	// directory has no affiliation on record.
	UnitKey string `json:"unitlogin,omitempty"`
}

// Unit is an affiliation group (lab, department) in the directory.
type Unit struct {
	Key      string `json:"unitlogin"`
	Name     string `json:"unitname"`
	Active   bool   `json:"active"`
	External bool   `json:"external"`
}

// System is a bookable lab system (instrument) in the directory.
type System struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type,omitempty"`
	FacilityID       int    `json:"coreid"`
	Active           bool   `json:"active"`
	AutonomyRequired bool   `json:"autonomyrequired"`
}

// PrivilegeLevel is a user's standing on a particular system.
type PrivilegeLevel string

const (
	PrivilegeNovice      PrivilegeLevel = "novice"
	PrivilegeAutonomous  PrivilegeLevel = "autonomous"
	PrivilegeSuperUser   PrivilegeLevel = "superuser"
	PrivilegeDeactivated PrivilegeLevel = "deactivated"
)

// Right pairs a system with the privilege level granted to a user.
type Right struct {
	SystemID  int            `json:"id"`
	Privilege PrivilegeLevel `json:"privilege"`
}

// UserWithUnit is the joined result of a user lookup and the lookup of
// their affiliation unit. Unit is nil when the user has no affiliation
// or the unit lookup missed.
type UserWithUnit struct {
	User *User
	Unit *Unit
}
