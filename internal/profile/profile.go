// Package profile manages the bounded collection of applicant profiles.
package profile

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

var (
	datePattern        = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	countryCodePattern = regexp.MustCompile(`^\d{1,3}$`)
	mobilePattern      = regexp.MustCompile(`^\d{7,15}$`)
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidationError reports the first profile field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Normalize trims every value and upper-cases the values the target form
// expects in capitals. Empty gender and nationality take the form defaults.
func Normalize(p schemas.Profile) schemas.Profile {
	p.ID = strings.TrimSpace(p.ID)
	p.ProfileName = strings.TrimSpace(p.ProfileName)
	p.FirstName = strings.ToUpper(strings.TrimSpace(p.FirstName))
	p.LastName = strings.ToUpper(strings.TrimSpace(p.LastName))
	p.Gender = strings.TrimSpace(p.Gender)
	p.Nationality = strings.TrimSpace(p.Nationality)
	p.DateOfBirth = strings.TrimSpace(p.DateOfBirth)
	p.PassportNumber = strings.ToUpper(strings.TrimSpace(p.PassportNumber))
	p.PassportExpiry = strings.TrimSpace(p.PassportExpiry)
	p.CountryCode = strings.TrimSpace(p.CountryCode)
	p.MobileNumber = strings.TrimSpace(p.MobileNumber)
	p.Email = strings.ToUpper(strings.TrimSpace(p.Email))

	if p.Gender == "" {
		p.Gender = schemas.DefaultGender
	}
	if p.Nationality == "" {
		p.Nationality = schemas.DefaultNationality
	}
	return p
}

// Validate checks a normalized profile. Format checks run first, in the
// order the extension's form applied them, then the required names.
func Validate(p schemas.Profile) error {
	switch {
	case !datePattern.MatchString(p.DateOfBirth):
		return &ValidationError{Field: "dateOfBirth", Message: "must be in DD/MM/YYYY format"}
	case !datePattern.MatchString(p.PassportExpiry):
		return &ValidationError{Field: "passportExpiry", Message: "must be in DD/MM/YYYY format"}
	case !countryCodePattern.MatchString(p.CountryCode):
		return &ValidationError{Field: "countryCode", Message: "must be 1-3 digits"}
	case !mobilePattern.MatchString(p.MobileNumber):
		return &ValidationError{Field: "mobileNumber", Message: "must be 7-15 digits"}
	case !emailPattern.MatchString(p.Email):
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	case p.ProfileName == "":
		return &ValidationError{Field: "profileName", Message: "is required"}
	case p.FirstName == "":
		return &ValidationError{Field: "firstName", Message: "is required"}
	case p.LastName == "":
		return &ValidationError{Field: "lastName", Message: "is required"}
	case p.PassportNumber == "":
		return &ValidationError{Field: "passportNumber", Message: "is required"}
	}
	return nil
}

// NewID returns a fresh profile id of the form profile_<unix-ms>_<suffix>.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("profile_%d_%s", now.UnixMilli(), suffix)
}
