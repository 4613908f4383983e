package auth

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

const (
	// MinPasswordLength is checked on the plaintext before hashing
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit, longer passwords are
	// rejected by the hasher
	MaxPasswordBytes = 72
	// MinNameLength is the shortest accepted display name
	MinNameLength = 2
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

type fieldRules struct {
	field string
	value any
	rules []validation.Rule
}

// ValidateRegistration runs the field rules for a new account, including
// the plaintext password. It returns nil or an error matching ErrValidation.
func ValidateRegistration(user *User, password string) error {
	checks := append(profileRules(user),
		fieldRules{"email", user.Email, []validation.Rule{
			validation.Required.Error("Email is required"),
			validation.Match(emailPattern).Error("Please fill a valid email address"),
		}},
		fieldRules{"employeeId", user.EmployeeID, []validation.Rule{
			validation.Required.Error("Employee ID is required"),
		}},
		fieldRules{"password", password, []validation.Rule{
			validation.Required.Error("Password is required"),
			validation.RuneLength(MinPasswordLength, 0).Error(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)),
			validation.By(maxPasswordBytes),
		}},
		fieldRules{"role", string(user.Role), []validation.Rule{
			validation.By(validRole),
		}},
	)
	return runRules(checks)
}

// ValidateProfile runs the rules for the self service fields
func ValidateProfile(user *User) error {
	return runRules(profileRules(user))
}

func profileRules(user *User) []fieldRules {
	return []fieldRules{
		{"name", user.Name, []validation.Rule{
			validation.Required.Error("Name is required"),
			validation.RuneLength(MinNameLength, 0).Error(fmt.Sprintf("Name must be at least %d characters", MinNameLength)),
		}},
		{"phone", user.Phone, []validation.Rule{
			validation.By(validPhone),
		}},
		{"preferences.theme", string(user.Preferences.Theme), []validation.Rule{
			validation.In(string(ThemeLight), string(ThemeDark), string(ThemeSystem)).
				Error("Theme must be one of light, dark, system"),
		}},
		{"preferences.dashboardLayout", string(user.Preferences.DashboardLayout), []validation.Rule{
			validation.In(string(LayoutDefault), string(LayoutCompact), string(LayoutExpanded)).
				Error("Dashboard layout must be one of default, compact, expanded"),
		}},
	}
}

func runRules(checks []fieldRules) error {
	var violations []FieldError
	for _, c := range checks {
		if err := validation.Validate(c.value, c.rules...); err != nil {
			violations = append(violations, FieldError{Field: c.field, Message: err.Error()})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return NewValidationError(violations)
}

// validPhone accepts empty values, anything else must parse as an
// international number including the country code.
func validPhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !IsValidPhoneNumber(s) {
		return fmt.Errorf("%s is not a valid phone number. Please include the country code.", s)
	}
	return nil
}

// IsValidPhoneNumber reports whether number is a valid international
// phone number. Numbers without a leading country code are rejected.
func IsValidPhoneNumber(number string) bool {
	num, err := phonenumbers.Parse(number, "")
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

func maxPasswordBytes(value any) error {
	s, _ := value.(string)
	if len(s) > MaxPasswordBytes {
		return fmt.Errorf("Password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

func validRole(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !Role(s).IsValid() {
		return errors.New("Role must be one of user, spm, supervisor, admin")
	}
	return nil
}
