package autofill

import (
	"time"

	"github.com/xkilldash9x/vfs-autofill/api/schemas"
	"github.com/xkilldash9x/vfs-autofill/internal/browser/dom"
)

const (
	// LayoutContent is the applicant details form as filled by typing.
	LayoutContent = "vfs-content"
	// LayoutPopup is the same form filled by direct assignment with a stagger.
	LayoutPopup = "vfs-popup"
)

var builtinLayouts = map[string]func() *Layout{
	LayoutContent: contentLayout,
	LayoutPopup:   popupLayout,
}

func sel(s string) Locator { return Locator{Type: StrategySelector, Selector: s} }
func placeholder(text string) Locator { return Locator{Type: StrategyPlaceholder, Text: text} }
func placeholderIn(s, text string) Locator { return Locator{Type: StrategyPlaceholder, Selector: s, Text: text} }
func id(text string) Locator { return Locator{Type: StrategyID, Text: text} }
func idIn(s, text string) Locator { return Locator{Type: StrategyID, Selector: s, Text: text} }

// placeholderHas and idHasIn match substrings only, like [attr*="text" i].
func placeholderHas(text string) Locator {
	return Locator{Type: StrategyPlaceholder, Text: text, Substring: true}
}
func placeholderHasIn(s, text string) Locator {
	return Locator{Type: StrategyPlaceholder, Selector: s, Text: text, Substring: true}
}
func idHasIn(s, text string) Locator {
	return Locator{Type: StrategyID, Selector: s, Text: text, Substring: true}
}
func label(text string) Locator { return Locator{Type: StrategyLabel, Text: text} }
func nth(s string, i int) Locator { return Locator{Type: StrategyNth, Selector: s, Index: i} }

func contentLayout() *Layout {
	return &Layout{
		Name:        LayoutContent,
		Description: "Applicant details form; keystroke typing, dropdowns 500ms after the inputs, 600ms apart",
		Injection:   ModeKeystroke,
		OpenEvent:   dom.ClassMouse,
		Timing: Timing{
			DropdownDelay:   500 * time.Millisecond,
			DropdownStagger: 600 * time.Millisecond,
		},
		Fields: []Field{
			{Name: "First Name", Kind: schemas.FieldInput, Key: schemas.KeyFirstName, Locators: []Locator{
				placeholder("Enter your first name"),
				label("First Name"),
				placeholder("first name"),
			}},
			{Name: "Last Name", Kind: schemas.FieldInput, Key: schemas.KeyLastName, Locators: []Locator{
				placeholder("Please enter last name."),
				label("Last Name"),
				placeholder("last name"),
			}},
			{Name: "Date of Birth", Kind: schemas.FieldInput, Key: schemas.KeyDateOfBirth, Locators: []Locator{
				id("dateOfBirth"),
				label("Date Of Birth"),
				sel("app-ngb-datepicker input"),
			}},
			{Name: "Passport Number", Kind: schemas.FieldInput, Key: schemas.KeyPassportNumber, Locators: []Locator{
				placeholder("Enter passport number"),
				label("Passport Number"),
				placeholder("passport number"),
			}},
			{Name: "Passport Expiry", Kind: schemas.FieldInput, Key: schemas.KeyPassportExpiry, Locators: []Locator{
				// The live form misspells the id; the corrected spelling is tried second.
				id("passportExpirtyDate"),
				id("passportExpiryDate"),
				label("Passport Expiry Date"),
				nth("app-ngb-datepicker input", 1),
			}},
			{Name: "Country Code", Kind: schemas.FieldInput, Key: schemas.KeyCountryCode, Locators: []Locator{
				sel(`input[maxlength="3"][placeholder="44"]`),
				sel(`.col-12.col-sm-4 input[maxlength="3"]`),
				sel(`input[maxlength="3"]:not([type="email"])`),
			}},
			{Name: "Mobile Number", Kind: schemas.FieldInput, Key: schemas.KeyMobileNumber, Locators: []Locator{
				sel(`input[placeholder="012345648382"]`),
				sel(`input[minlength="7"][maxlength="15"]`),
				sel(`.col-12.col-sm-8 input[minlength="7"]`),
			}},
			{Name: "Email", Kind: schemas.FieldInput, Key: schemas.KeyEmail, Locators: []Locator{
				sel(`input[type="email"]`),
				placeholder("Enter Email Address"),
				label("Email"),
			}},
			{Name: "Gender", Kind: schemas.FieldDropdown, Key: schemas.KeyGender, Default: schemas.DefaultGender, Locators: []Locator{
				sel("mat-select#mat-select-23"),
				sel(`mat-select[aria-labelledby*="mat-select-value-23"]`),
				label("Gender"),
			}},
			{Name: "Current Nationality", Kind: schemas.FieldDropdown, Key: schemas.KeyNationality, Default: schemas.DefaultNationality, Locators: []Locator{
				sel("mat-select#mat-select-24"),
				sel(`mat-select[aria-labelledby*="mat-select-value-24"]`),
				label("Current Nationality"),
			}},
		},
	}
}

func popupLayout() *Layout {
	return &Layout{
		Name:        LayoutPopup,
		Description: "Applicant details form; direct assignment 100ms apart, dropdowns after inputs*100ms+200ms, 600ms apart",
		Injection:   ModeDirect,
		OpenEvent:   dom.ClassEvent,
		Timing: Timing{
			FieldStagger:          100 * time.Millisecond,
			DropdownDelay:         200 * time.Millisecond,
			DropdownDelayPerInput: 100 * time.Millisecond,
			DropdownStagger:       600 * time.Millisecond,
		},
		Fields: []Field{
			{Name: "First Name", Kind: schemas.FieldInput, Key: schemas.KeyFirstName, Locators: []Locator{
				sel(`input[placeholder="Enter your first name"]`),
				placeholderHasIn(`input[id*="mat-input"]`, "first name"),
				placeholderHasIn("app-input-control input", "first"),
			}},
			{Name: "Last Name", Kind: schemas.FieldInput, Key: schemas.KeyLastName, Locators: []Locator{
				sel(`input[placeholder="Please enter last name."]`),
				placeholderHas("last name"),
				placeholderHasIn("app-input-control input", "last"),
			}},
			{Name: "Date of Birth", Kind: schemas.FieldInput, Key: schemas.KeyDateOfBirth, Locators: []Locator{
				sel("input#dateOfBirth"),
				sel(`input[id="dateOfBirth"]`),
				placeholderHasIn("app-ngb-datepicker input", "date"),
			}},
			{Name: "Passport Number", Kind: schemas.FieldInput, Key: schemas.KeyPassportNumber, Locators: []Locator{
				sel(`input[placeholder="Enter passport number"]`),
				placeholderHas("passport number"),
				placeholderHasIn("app-input-control input", "passport"),
			}},
			{Name: "Passport Expiry Date", Kind: schemas.FieldInput, Key: schemas.KeyPassportExpiry, Locators: []Locator{
				sel("input#passportExpirtyDate"),
				sel(`input[id="passportExpirtyDate"]`),
				sel("input#passportExpiryDate"),
				idHasIn("app-ngb-datepicker input", "passport"),
			}},
			{Name: "Country Code", Kind: schemas.FieldInput, Key: schemas.KeyCountryCode, Locators: []Locator{
				sel(`input[placeholder="44"][maxlength="3"]`),
				sel(`input[maxlength="3"][placeholder*="44"]`),
				sel(`.col-12.col-sm-4 input[maxlength="3"]`),
				sel(`app-input-control input[maxlength="3"]`),
			}},
			{Name: "Mobile Number", Kind: schemas.FieldInput, Key: schemas.KeyMobileNumber, Locators: []Locator{
				sel(`input[placeholder="012345648382"]`),
				sel(`input[minlength="7"][maxlength="15"]`),
				sel(`.col-12.col-sm-8 input[maxlength="15"]`),
				placeholderHas("0123456"),
			}},
			{Name: "Email", Kind: schemas.FieldInput, Key: schemas.KeyEmail, Locators: []Locator{
				sel(`input[type="email"]`),
				sel(`input[placeholder="Enter Email Address"]`),
				placeholderHas("email"),
				sel(`app-input-control input[type="email"]`),
			}},
			{Name: "Gender", Kind: schemas.FieldDropdown, Key: schemas.KeyGender, Locators: []Locator{
				sel("mat-select#mat-select-23"),
				sel(`mat-select[aria-labelledby*="mat-select-value-23"]`),
				label("Gender"),
			}},
			{Name: "Current Nationality", Kind: schemas.FieldDropdown, Key: schemas.KeyNationality, Locators: []Locator{
				sel("mat-select#mat-select-24"),
				sel(`mat-select[aria-labelledby*="mat-select-value-24"]`),
				label("Current Nationality"),
			}},
		},
	}
}
