// Package validation checks staged records for required fields and field formats
// before anything touches the target store. It is pure: no I/O, no clock.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"stagehand/internal/ingest/models"
	"stagehand/pkg/email"
)

// MaxFieldLength bounds any single raw value.
const MaxFieldLength = 255

const dateLayout = "2006-01-02"

var (
	currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 ()./-]{5,32}$`)
	skuPattern      = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._+-]{3,64}$`)
)

// rule checks one field. Rules run in declaration order and the first failure wins,
// so messages are deterministic.
type rule struct {
	field    string
	required bool
	check    func(string) bool
}

var rules = map[models.RecordKind][]rule{
	models.RecordKindCustomer: {
		{field: "email", required: true, check: email.IsValidShape},
		{field: "username", check: usernamePattern.MatchString},
		{field: "date_of_birth", check: isDate},
		{field: "phone", check: phonePattern.MatchString},
		{field: "country", check: isCountry},
	},
	models.RecordKindOrder: {
		{field: "order_number", required: true},
		{field: "customer_email", required: true, check: email.IsValidShape},
		{field: "total_amount", required: true, check: IsAmount},
		{field: "currency", check: currencyPattern.MatchString},
		{field: "created_at", check: isTimestamp},
	},
	models.RecordKindProduct: {
		{field: "sku", required: true, check: skuPattern.MatchString},
		{field: "name", required: true},
		{field: "price", required: true, check: IsAmount},
		{field: "stock_quantity", check: isCount},
	},
}

// Validate returns nil when fields are acceptable for kind, otherwise a validation
// RecordError naming the first offending field.
// Follows validation order: Size -> Required -> Syntax.
func Validate(kind models.RecordKind, fields models.Fields) *models.RecordError {
	kindRules, ok := rules[kind]
	if !ok {
		return invalid("record_kind")
	}

	for _, f := range fields {
		if len(f.Value) > MaxFieldLength {
			return invalid(f.Name)
		}
	}

	for _, r := range kindRules {
		if r.required && fields.Value(r.field) == "" {
			return &models.RecordError{Kind: models.ErrorKindValidation, Message: r.field + " is required"}
		}
	}

	for _, r := range kindRules {
		v := fields.Value(r.field)
		if v == "" || r.check == nil {
			continue
		}
		if !r.check(v) {
			return invalid(r.field)
		}
	}
	return nil
}

// isCountry only bounds length; unrecognized names fall back to the default region
// at transform time.
func isCountry(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= 2 && n <= 64
}

// IsAmount reports whether s is a non-negative decimal with at most two fraction digits.
func IsAmount(s string) bool {
	_, err := ParseCents(s)
	return err == nil
}

// ParseCents converts a decimal amount string into integer cents.
func ParseCents(s string) (int64, error) {
	whole, frac, hasFrac := cutDecimal(s)
	if whole == "" && !hasFrac {
		return 0, strconv.ErrSyntax
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, strconv.ErrSyntax
	}
	if whole == "" {
		whole = "0"
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseUint(whole, 10, 40)
	if err != nil {
		return 0, err
	}
	c, err := strconv.ParseUint(frac, 10, 8)
	if err != nil {
		return 0, err
	}
	return int64(w)*100 + int64(c), nil
}

func cutDecimal(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func isCount(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0
}

func isDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func isTimestamp(s string) bool {
	_, err := ParseTimestamp(s)
	return err == nil
}

// ParseTimestamp accepts RFC 3339, "YYYY-MM-DD HH:MM:SS" or a bare date, all as UTC
// unless an offset is given.
func ParseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range []string{time.RFC3339, time.DateTime, dateLayout} {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func invalid(field string) *models.RecordError {
	return &models.RecordError{Kind: models.ErrorKindValidation, Message: field + " is invalid"}
}
