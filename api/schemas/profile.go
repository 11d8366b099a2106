package schemas

import "time"

// ProfileStorageKey is the fixed key the profile collection is stored under.
const ProfileStorageKey = "vfs_autofill_profiles"

// MaxProfiles bounds the stored profile collection.
const MaxProfiles = 5

const (
	DefaultGender      = "Male"
	DefaultNationality = "PHILIPPINES"
	DefaultCountryCode = "63"
)

// Profile is one applicant's identity and travel record. The JSON names match
// the browser extension's storage layout so exported collections load as-is.
type Profile struct {
	ID             string    `json:"id"`
	ProfileName    string    `json:"profileName"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Gender         string    `json:"gender"`
	Nationality    string    `json:"nationality"`
	DateOfBirth    string    `json:"dateOfBirth"`
	PassportNumber string    `json:"passportNumber"`
	PassportExpiry string    `json:"passportExpiry"`
	CountryCode    string    `json:"countryCode"`
	MobileNumber   string    `json:"mobileNumber"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ProfileKey names a fillable profile attribute. Layout files refer to
// profile values through these keys.
type ProfileKey string

const (
	KeyFirstName      ProfileKey = "firstName"
	KeyLastName       ProfileKey = "lastName"
	KeyGender         ProfileKey = "gender"
	KeyNationality    ProfileKey = "nationality"
	KeyDateOfBirth    ProfileKey = "dateOfBirth"
	KeyPassportNumber ProfileKey = "passportNumber"
	KeyPassportExpiry ProfileKey = "passportExpiry"
	KeyCountryCode    ProfileKey = "countryCode"
	KeyMobileNumber   ProfileKey = "mobileNumber"
	KeyEmail          ProfileKey = "email"
)

// Value returns the profile attribute addressed by key and whether the key is known.
func (p Profile) Value(key ProfileKey) (string, bool) {
	switch key {
	case KeyFirstName:
		return p.FirstName, true
	case KeyLastName:
		return p.LastName, true
	case KeyGender:
		return p.Gender, true
	case KeyNationality:
		return p.Nationality, true
	case KeyDateOfBirth:
		return p.DateOfBirth, true
	case KeyPassportNumber:
		return p.PassportNumber, true
	case KeyPassportExpiry:
		return p.PassportExpiry, true
	case KeyCountryCode:
		return p.CountryCode, true
	case KeyMobileNumber:
		return p.MobileNumber, true
	case KeyEmail:
		return p.Email, true
	}
	return "", false
}
