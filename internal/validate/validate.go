package validate

import "fmt"

// Text field length limits shared by the HTML form and the JSON API.
const (
	MaxPlayerNameLength = 100
	MaxUsernameLength   = 64
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func PlayerName(s string) string { return checkLen(s, MaxPlayerNameLength, "player name") }
func Username(s string) string   { return checkLen(s, MaxUsernameLength, "username") }

// FieldLimits returns field names mapped to max lengths, rendered into the
// settings form as maxlength attributes.
func FieldLimits() map[string]int {
	return map[string]int{
		"playerName": MaxPlayerNameLength,
		"username":   MaxUsernameLength,
	}
}
