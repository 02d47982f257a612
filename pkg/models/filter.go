package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// FilterType selects which part of an email a filter inspects
type FilterType string

const (
	FilterFrom            FilterType = "from"
	FilterSubjectStarts   FilterType = "subject_starts"
	FilterSubjectContains FilterType = "subject_contains"
	FilterBodyContains    FilterType = "body_contains"
	FilterNewerThanDays   FilterType = "newer_than_days"
	FilterOlderThanDays   FilterType = "older_than_days"
)

// FilterLogic combines several filters
type FilterLogic string

const (
	LogicAnd FilterLogic = "AND"
	LogicOr  FilterLogic = "OR"
)

// Filter is a single global filter rule as stored in the filters category
type Filter struct {
	ID    any        `json:"id"`
	Type  FilterType `json:"type"`
	Value string     `json:"value"`
}

// Settings keys read by the processing pipeline
const (
	KeyGlobalFilters     = "global_filters"
	KeyFilterLogic       = "filter_logic"
	KeyCaseNumberRegex   = "case_number_regex"
	KeyMaxEmailsPerRun   = "max_emails_per_run"
	KeyIntercomToken     = "intercom_token"
	KeyIntercomWorkspace = "intercom_workspace_id"
)

// ParseFilters decodes the global_filters setting. An empty value is an
// empty list; values may be numbers or strings.
func ParseFilters(raw string) ([]Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []Filter{}, nil
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyGlobalFilters, err)
	}

	filters := make([]Filter, 0, len(items))
	for _, item := range items {
		filters = append(filters, Filter{
			ID:    item["id"],
			Type:  FilterType(cast.ToString(item["type"])),
			Value: cast.ToString(item["value"]),
		})
	}
	return filters, nil
}
