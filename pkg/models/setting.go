package models

import "strings"

// Category names a settings partition
type Category string

const (
	CategoryIMAP     Category = "imap"
	CategoryIntercom Category = "intercom"
	CategoryFilters  Category = "filters"
	CategoryGeneral  Category = "general"
)

// Categories lists every partition in listing order
var Categories = []Category{CategoryIMAP, CategoryIntercom, CategoryFilters, CategoryGeneral}

// ParseCategory maps a name to its Category, falling back to general
func ParseCategory(name string) Category {
	switch Category(name) {
	case CategoryIMAP, CategoryIntercom, CategoryFilters, CategoryGeneral:
		return Category(name)
	default:
		return CategoryGeneral
	}
}

// Setting is a single stored configuration value
type Setting struct {
	ID          int64    `json:"id"`
	Key         string   `json:"key"`
	Value       string   `json:"value"`
	Category    Category `json:"category"`
	IsEncrypted bool     `json:"is_encrypted"`
}

// SettingInput is the payload of a create-or-update call.
// A zero ID means the caller did not supply one.
type SettingInput struct {
	ID          int64
	Key         string
	Value       string
	Category    string
	IsEncrypted bool
}

// IsSensitiveKey reports whether a key name marks a secret value
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "token")
}
