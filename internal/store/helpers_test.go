package store

import (
	"regexp"
	"strings"
	"time"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func sampleProfiles() []schemas.Profile {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return []schemas.Profile{
		{
			ID:             "profile_1710408600000_ab12cd34",
			ProfileName:    "Maria",
			FirstName:      "MARIA",
			LastName:       "SANTOS",
			Gender:         "Female",
			Nationality:    "PHILIPPINES",
			DateOfBirth:    "01/02/1990",
			PassportNumber: "P1234567A",
			PassportExpiry: "31/12/2030",
			CountryCode:    "63",
			MobileNumber:   "9171234567",
			Email:          "MARIA@EXAMPLE.COM",
			CreatedAt:      created,
		},
		{
			ID:             "profile_1710408600001_ef56ab78",
			ProfileName:    "Jose",
			FirstName:      "JOSE",
			LastName:       "REYES",
			Gender:         "Male",
			Nationality:    "PHILIPPINES",
			DateOfBirth:    "15/07/1985",
			PassportNumber: "P7654321B",
			PassportExpiry: "01/01/2029",
			CountryCode:    "63",
			MobileNumber:   "9181234567",
			Email:          "JOSE@EXAMPLE.COM",
			CreatedAt:      created,
		},
	}
}
