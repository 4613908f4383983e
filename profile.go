package auth

import (
	"bytes"
	"encoding/json"
)

// AllowedProfileFields are the only keys a self service update may carry
var AllowedProfileFields = []string{"name", "phone", "preferences"}

// NotificationsUpdate overrides individual notification channels
type NotificationsUpdate struct {
	Email *bool `json:"email,omitempty"`
	SMS   *bool `json:"sms,omitempty"`
	Push  *bool `json:"push,omitempty"`
}

// PreferencesUpdate overrides individual preferences, nil fields keep
// their current value.
type PreferencesUpdate struct {
	Theme           *Theme               `json:"theme,omitempty"`
	DashboardLayout *DashboardLayout     `json:"dashboardLayout,omitempty"`
	Notifications   *NotificationsUpdate `json:"notifications,omitempty"`
}

// ProfileUpdate is a partial update of the self service fields
type ProfileUpdate struct {
	Name        *string            `json:"name,omitempty"`
	Phone       *string            `json:"phone,omitempty"`
	Preferences *PreferencesUpdate `json:"preferences,omitempty"`
}

// ParseProfileUpdate decodes a JSON object into a ProfileUpdate. Any key
// outside AllowedProfileFields rejects the whole payload with
// ErrInvalidUpdate, nothing is applied partially. An empty body is an
// empty update.
func ParseProfileUpdate(body []byte) (ProfileUpdate, error) {
	var upd ProfileUpdate

	if len(bytes.TrimSpace(body)) == 0 {
		return upd, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return upd, ErrInvalidUpdate.WithSource(err)
	}

	for key := range raw {
		if !isAllowedProfileField(key) {
			return upd, ErrInvalidUpdate
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		return upd, ErrInvalidUpdate.WithSource(err)
	}

	return upd, nil
}

func isAllowedProfileField(key string) bool {
	for _, f := range AllowedProfileFields {
		if f == key {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the update changes nothing
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Preferences == nil
}

// Apply merges the update into user
func (p ProfileUpdate) Apply(user *User) {
	if p.Name != nil {
		user.Name = *p.Name
	}
	if p.Phone != nil {
		user.Phone = *p.Phone
	}
	if prefs := p.Preferences; prefs != nil {
		if prefs.Theme != nil {
			user.Preferences.Theme = *prefs.Theme
		}
		if prefs.DashboardLayout != nil {
			user.Preferences.DashboardLayout = *prefs.DashboardLayout
		}
		if n := prefs.Notifications; n != nil {
			if n.Email != nil {
				user.Preferences.Notifications.Email = *n.Email
			}
			if n.SMS != nil {
				user.Preferences.Notifications.SMS = *n.SMS
			}
			if n.Push != nil {
				user.Preferences.Notifications.Push = *n.Push
			}
		}
	}
	user.Normalize()
}
