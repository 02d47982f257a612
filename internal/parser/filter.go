package parser

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/mixelka/mailsync/pkg/models"
)

// Candidate is the part of an email the filters look at
type Candidate struct {
	From    string
	Subject string
	Body    string
	Date    time.Time
}

// FilterSet evaluates the global filters against emails
type FilterSet struct {
	filters []models.Filter
	logic   models.FilterLogic
}

// NewFilterSet creates a filter set. Any logic other than OR means AND.
func NewFilterSet(filters []models.Filter, logic string) *FilterSet {
	l := models.LogicAnd
	if strings.EqualFold(strings.TrimSpace(logic), string(models.LogicOr)) {
		l = models.LogicOr
	}
	return &FilterSet{filters: filters, logic: l}
}

// Logic returns the effective combination
func (fs *FilterSet) Logic() models.FilterLogic {
	return fs.logic
}

// Match reports whether c passes the filters. Filters with an unknown
// type or an unusable value are ignored; no usable filters match
// everything.
func (fs *FilterSet) Match(c Candidate, now time.Time) bool {
	evaluated := 0
	for _, f := range fs.filters {
		ok, usable := evaluate(f, c, now)
		if !usable {
			continue
		}
		evaluated++

		if fs.logic == models.LogicOr && ok {
			return true
		}
		if fs.logic == models.LogicAnd && !ok {
			return false
		}
	}

	if evaluated == 0 {
		return true
	}
	return fs.logic == models.LogicAnd
}

func evaluate(f models.Filter, c Candidate, now time.Time) (matched, usable bool) {
	value := strings.TrimSpace(f.Value)
	if value == "" {
		return false, false
	}
	needle := strings.ToLower(value)

	switch f.Type {
	case models.FilterFrom:
		return strings.Contains(strings.ToLower(c.From), needle), true
	case models.FilterSubjectStarts:
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(c.Subject)), needle), true
	case models.FilterSubjectContains:
		return strings.Contains(strings.ToLower(c.Subject), needle), true
	case models.FilterBodyContains:
		return strings.Contains(strings.ToLower(c.Body), needle), true
	case models.FilterNewerThanDays, models.FilterOlderThanDays:
		days, err := cast.ToFloat64E(value)
		if err != nil || days < 0 || c.Date.IsZero() {
			return false, false
		}
		cutoff := now.Add(-time.Duration(days * float64(24*time.Hour)))
		if f.Type == models.FilterNewerThanDays {
			return c.Date.After(cutoff), true
		}
		return c.Date.Before(cutoff), true
	default:
		return false, false
	}
}
