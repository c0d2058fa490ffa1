// Package transform turns validated staged fields into target entity plans.
package transform

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"stagehand/internal/ingest/models"
	"stagehand/internal/ingest/validation"
	"stagehand/internal/target"
	"stagehand/pkg/email"
)

const (
	DefaultRegion      = "US"
	DefaultCurrency    = "USD"
	DefaultOrderStatus = "pending"
)

// Entity is one row to create.
type Entity struct {
	Kind   target.EntityKind
	Fields map[string]any
}

// Child is created after the primary entity; OwnerField receives the primary's id.
type Child struct {
	Entity
	OwnerField string
}

// Reference is an optional link resolved inside the write group: when an entity
// matching Key exists, its id is stored in Field on the primary.
type Reference struct {
	Field string
	Kind  target.EntityKind
	Key   target.NaturalKey
}

// Plan is everything one staged record writes to the target store.
type Plan struct {
	Primary    Entity
	References []Reference
	Children   []Child
	// Generated lists primary string fields derived by the transform rather than
	// supplied by the source. They must be unique in the target, so the loader
	// suffixes them until free.
	Generated []string
}

// Transformer builds plans. It is safe for concurrent use.
type Transformer struct {
	defaultRegion string
	bcryptCost    int
}

type Option func(*Transformer)

// WithDefaultRegion sets the country code used when a country is missing or unknown.
func WithDefaultRegion(code string) Option {
	return func(t *Transformer) {
		if code != "" {
			t.defaultRegion = strings.ToUpper(code)
		}
	}
}

// WithBcryptCost sets the cost of placeholder password hashes.
func WithBcryptCost(cost int) Option {
	return func(t *Transformer) {
		t.bcryptCost = cost
	}
}

func New(opts ...Option) *Transformer {
	t := &Transformer{
		defaultRegion: DefaultRegion,
		bcryptCost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PrimaryKind is the target entity a record kind creates.
func PrimaryKind(kind models.RecordKind) (target.EntityKind, error) {
	switch kind {
	case models.RecordKindCustomer:
		return target.EntityUser, nil
	case models.RecordKindOrder:
		return target.EntityOrder, nil
	case models.RecordKindProduct:
		return target.EntityProduct, nil
	}
	return "", fmt.Errorf("no target entity for record kind %q", kind)
}

// NaturalKey returns the duplicate-detection key of a validated record.
func NaturalKey(kind models.RecordKind, fields models.Fields) target.NaturalKey {
	switch kind {
	case models.RecordKindCustomer:
		addr := email.Normalize(fields.Value("email"))
		key := target.NaturalKey{"email": addr}
		if u := fields.Value("username"); u != "" {
			key["username"] = strings.ToLower(u)
		}
		return key
	case models.RecordKindOrder:
		return target.NaturalKey{"order_number": fields.Value("order_number")}
	case models.RecordKindProduct:
		return target.NaturalKey{"sku": strings.ToUpper(fields.Value("sku"))}
	}
	return nil
}

// Plan builds the entities for a validated record.
func (t *Transformer) Plan(kind models.RecordKind, fields models.Fields) (Plan, error) {
	switch kind {
	case models.RecordKindCustomer:
		return t.customer(fields)
	case models.RecordKindOrder:
		return t.order(fields)
	case models.RecordKindProduct:
		return t.product(fields)
	}
	return Plan{}, fmt.Errorf("no transform for record kind %q", kind)
}

func (t *Transformer) customer(fields models.Fields) (Plan, error) {
	addr := email.Normalize(fields.Value("email"))

	hash, err := t.placeholderHash()
	if err != nil {
		return Plan{}, err
	}

	first, last := fields.Value("first_name"), fields.Value("last_name")
	if first == "" && last == "" {
		first, last = email.DeriveNameFromEmail(addr)
	}

	profile := map[string]any{
		"first_name":   first,
		"last_name":    last,
		"display_name": strings.TrimSpace(first + " " + last),
	}
	if phone := fields.Value("phone"); phone != "" {
		profile["phone"] = phone
	}
	if dob := fields.Value("date_of_birth"); dob != "" {
		profile["date_of_birth"] = dob
	}

	plan := Plan{
		Primary: Entity{Kind: target.EntityUser, Fields: map[string]any{
			"username":       username(fields, addr),
			"email":          addr,
			"password_hash":  hash,
			"email_verified": false,
			"is_active":      true,
		}},
		Children: []Child{{
			Entity:     Entity{Kind: target.EntityUserProfile, Fields: profile},
			OwnerField: "user_id",
		}},
	}

	if fields.Value("username") == "" {
		plan.Generated = []string{"username"}
	}

	if line1 := fields.Value("address"); line1 != "" || fields.Value("country") != "" {
		plan.Children = append(plan.Children, Child{
			Entity: Entity{Kind: target.EntityAddress, Fields: map[string]any{
				"owner_kind":   string(target.EntityUser),
				"line1":        line1,
				"city":         fields.Value("city"),
				"region":       fields.Value("state"),
				"postal_code":  fields.Value("postal_code"),
				"country_code": CountryCode(fields.Value("country"), t.defaultRegion),
			}},
			OwnerField: "owner_id",
		})
	}
	return plan, nil
}

func (t *Transformer) order(fields models.Fields) (Plan, error) {
	cents, err := validation.ParseCents(fields.Value("total_amount"))
	if err != nil {
		return Plan{}, invalidField("total_amount")
	}

	currency := strings.ToUpper(fields.Value("currency"))
	if currency == "" {
		currency = DefaultCurrency
	}
	status := strings.ToLower(fields.Value("status"))
	if status == "" {
		status = DefaultOrderStatus
	}
	customer := email.Normalize(fields.Value("customer_email"))

	row := map[string]any{
		"order_number":       fields.Value("order_number"),
		"customer_email":     customer,
		"total_amount_cents": cents,
		"currency":           currency,
		"order_status":       status,
	}
	if raw := fields.Value("created_at"); raw != "" {
		ts, err := validation.ParseTimestamp(raw)
		if err != nil {
			return Plan{}, invalidField("created_at")
		}
		row["ordered_at"] = ts
	}

	return Plan{
		Primary: Entity{Kind: target.EntityOrder, Fields: row},
		References: []Reference{{
			Field: "customer_id",
			Kind:  target.EntityUser,
			Key:   target.NaturalKey{"email": customer},
		}},
	}, nil
}

func (t *Transformer) product(fields models.Fields) (Plan, error) {
	cents, err := validation.ParseCents(fields.Value("price"))
	if err != nil {
		return Plan{}, invalidField("price")
	}
	stock := 0
	if raw := fields.Value("stock_quantity"); raw != "" {
		if stock, err = strconv.Atoi(raw); err != nil {
			return Plan{}, invalidField("stock_quantity")
		}
	}
	row := map[string]any{
		"sku":            strings.ToUpper(fields.Value("sku")),
		"name":           fields.Value("name"),
		"price_cents":    cents,
		"stock_quantity": stock,
		"is_active":      true,
	}
	if desc := fields.Value("description"); desc != "" {
		row["description"] = desc
	}
	return Plan{Primary: Entity{Kind: target.EntityProduct, Fields: row}}, nil
}

// placeholderHash is a bcrypt hash of a random secret nobody knows, so imported
// accounts exist but cannot log in until a password reset.
func (t *Transformer) placeholderHash() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate placeholder secret: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword(secret, t.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash placeholder secret: %w", err)
	}
	return string(hash), nil
}

func username(fields models.Fields, normalizedEmail string) string {
	if u := fields.Value("username"); u != "" {
		return strings.ToLower(u)
	}
	return email.LocalPart(normalizedEmail)
}

func invalidField(field string) *models.RecordError {
	return &models.RecordError{Kind: models.ErrorKindValidation, Message: field + " is invalid"}
}
