package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	USD Currency = "usd"
	EUR Currency = "eur"
	GBP Currency = "gbp"
	PLN Currency = "pln"
)

const (
	KindCategory LabelKind = "category"
	KindTag      LabelKind = "tag"
)

const (
	StateActive   LabelState = "active"
	StateArchived LabelState = "archived"
)

const (
	MaxNameLength        = 100
	MaxNoteLength        = 100
	MaxIconLength        = 50
	DefaultTagColor      = "#3B82F6"
	DefaultCategoryColor = "#6B7280"
)

type (
	Currency   string
	LabelKind  string
	LabelState string

	User struct {
		ID        string
		Email     string
		CreatedAt time.Time
	}

	Wallet struct {
		ID           string
		UserID       string
		Name         string
		Currency     Currency
		InitialValue decimal.Decimal
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// WalletWithBalance pairs a wallet with a balance derived at read time.
	WalletWithBalance struct {
		Wallet
		Balance          decimal.Decimal
		TransactionCount int64
	}

	// Label is a user-scoped category or tag. Archival is one-way; visibility
	// toggles independently of it.
	Label struct {
		ID               string
		UserID           string
		Kind             LabelKind
		Name             string
		Icon             string
		Color            string
		IsVisible        bool
		State            LabelState
		TransactionCount int64
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	Transaction struct {
		ID        string
		WalletID  string
		CreatedBy string
		Note      string
		Amount    decimal.Decimal // negative = expense, positive = income
		Currency  Currency
		Date      time.Time
		Category  *Label
		Tags      []Label
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	WalletInput struct {
		Name         string
		Currency     Currency
		InitialValue decimal.Decimal
	}

	TransactionInput struct {
		Note       string
		Amount     decimal.Decimal
		Currency   Currency
		Date       time.Time
		CategoryID *string
		TagIDs     []string
	}

	LabelInput struct {
		Name      string
		Icon      string
		Color     string
		IsVisible bool
	}
)

var supportedCurrencies = []Currency{USD, EUR, GBP, PLN}

// SupportedCurrencies returns the currencies a wallet may be opened in.
func SupportedCurrencies() []Currency {
	out := make([]Currency, len(supportedCurrencies))
	copy(out, supportedCurrencies)
	return out
}

func currencyChoices() string {
	names := make([]string, 0, len(supportedCurrencies))
	for _, c := range SupportedCurrencies() {
		names = append(names, string(c))
	}
	return "must be one of " + strings.Join(names, ", ")
}

func (c Currency) IsValid() bool {
	for _, s := range supportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// ParseCurrency normalizes case and whitespace before checking support.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	return c, c.IsValid()
}

func (k LabelKind) IsValid() bool {
	return k == KindCategory || k == KindTag
}

func (k LabelKind) DefaultColor() string {
	if k == KindTag {
		return DefaultTagColor
	}
	return DefaultCategoryColor
}

func (l Label) IsArchived() bool {
	return l.State == StateArchived
}

// Selectable reports whether the label belongs in a picker for new input.
func (l Label) Selectable() bool {
	return l.IsVisible && !l.IsArchived()
}

// Assignable reports whether the label may be attached on create or update.
// Hidden labels stay assignable; archived ones never are.
func (l Label) Assignable() bool {
	return !l.IsArchived()
}

// CategoryID returns the id of the transaction's category or nil.
func (t Transaction) CategoryID() *string {
	if t.Category == nil {
		return nil
	}
	id := t.Category.ID
	return &id
}

// TagIDs returns the ids of the transaction's tags in order.
func (t Transaction) TagIDs() []string {
	ids := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

func (w WalletInput) Validate() error {
	verr := &ValidationError{}
	validateName(verr, "name", w.Name)
	if !w.Currency.IsValid() {
		verr.Add("currency", currencyChoices())
	}
	if err := ValidateAmount(w.InitialValue, true); err != nil {
		verr.Add("initial_value", err.Error())
	}
	return verr.OrNil()
}

func (t TransactionInput) Validate() error {
	verr := &ValidationError{}
	note := strings.TrimSpace(t.Note)
	if note == "" {
		verr.Add("note", "is required")
	} else if utf8.RuneCountInString(note) > MaxNoteLength {
		verr.Add("note", "must be at most 100 characters")
	}
	if err := ValidateAmount(t.Amount, false); err != nil {
		verr.Add("amount", err.Error())
	}
	if !t.Currency.IsValid() {
		verr.Add("currency", currencyChoices())
	}
	if t.Date.IsZero() {
		verr.Add("date", "is required")
	} else if t.Date.Year() < MinTransactionYear {
		verr.Add("date", fmt.Sprintf("must not be before %d-01-01", MinTransactionYear))
	}
	seen := make(map[string]struct{}, len(t.TagIDs))
	for _, id := range t.TagIDs {
		if _, dup := seen[id]; dup {
			verr.Add("tag_ids", "must not contain duplicates")
			break
		}
		seen[id] = struct{}{}
	}
	return verr.OrNil()
}

func (l LabelInput) Validate() error {
	verr := &ValidationError{}
	validateName(verr, "name", l.Name)
	if utf8.RuneCountInString(l.Icon) > MaxIconLength {
		verr.Add("icon", "must be at most 50 characters")
	}
	if !IsHexColor(l.Color) {
		verr.Add("color", "must be a #RRGGBB hex color")
	}
	return verr.OrNil()
}

func validateName(verr *ValidationError, field, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		verr.Add(field, "is required")
		return
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		verr.Add(field, "must be at most 100 characters")
	}
}

// IsHexColor accepts the #RRGGBB form only.
func IsHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
