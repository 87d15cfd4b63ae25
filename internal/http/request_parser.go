package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// badRequestError marks input that could not be decoded at all, as opposed to
// decoded input that fails validation.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// ParsePeriod reads month and year from the query. Missing values fall back
// to the current month; present but malformed values are a validation error.
func ParsePeriod(query url.Values, now time.Time) (core.Period, error) {
	verr := &core.ValidationError{}
	month := parseIntParam(query, "month", verr)
	year := parseIntParam(query, "year", verr)
	if err := verr.OrNil(); err != nil {
		return core.Period{}, err
	}
	return core.NewPeriod(month, year, now)
}

func parseIntParam(query url.Values, key string, verr *core.ValidationError) int {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		verr.Add(key, "must be an integer")
		return 0
	}
	if n == 0 {
		verr.Add(key, "must not be zero")
	}
	return n
}

// parseLabelFilter reads include_hidden and include_archived flags.
func parseLabelFilter(c *gin.Context) (storage.LabelFilter, error) {
	var f storage.LabelFilter
	var err error
	if f.IncludeHidden, err = parseBoolParam(c, "include_hidden"); err != nil {
		return f, err
	}
	if f.IncludeArchived, err = parseBoolParam(c, "include_archived"); err != nil {
		return f, err
	}
	return f, nil
}

func parseBoolParam(c *gin.Context, key string) (bool, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.NewValidationError(key, "must be a boolean")
	}
	return b, nil
}

// decodeJSON binds the request body, rejecting unknown fields and trailing
// data.
func decodeJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil {
		return badRequest("request body is required")
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var amountErr *amountError
		if errors.As(err, &amountErr) {
			return core.NewValidationError(amountErr.field, "must be a decimal number")
		}
		return badRequest("malformed JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("malformed JSON body: unexpected trailing data")
	}
	return nil
}

type amountError struct {
	field string
}

func (e *amountError) Error() string { return e.field + ": invalid amount" }

// parseAmountJSON accepts "12.50", "12,50" or a bare JSON number.
func parseAmountJSON(b []byte, field string) (decimal.Decimal, error) {
	b = bytes.TrimSpace(b)
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return decimal.Zero, &amountError{field: field}
		}
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, &amountError{field: field}
	}
	return d, nil
}

type amountField struct {
	decimal.Decimal
}

type initialValueField struct {
	decimal.Decimal
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	d, err := parseAmountJSON(b, "amount")
	a.Decimal = d
	return err
}

func (a *initialValueField) UnmarshalJSON(b []byte) error {
	d, err := parseAmountJSON(b, "initial_value")
	a.Decimal = d
	return err
}

// nullableString tells an absent field from an explicit null.
type nullableString struct {
	Set   bool
	Valid bool
	Value string
}

func (n *nullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(bytes.TrimSpace(b)) == "null" {
		n.Valid = false
		return nil
	}
	n.Valid = true
	return json.Unmarshal(b, &n.Value)
}

func (n nullableString) ptr() *string {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func parseDateField(s *string) (time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return time.Time{}, nil
	}
	t, err := core.ParseDate(*s)
	if errors.Is(err, core.ErrDateOutOfRange) {
		return time.Time{}, core.NewValidationError("date", fmt.Sprintf("must not be before %d-01-01", core.MinTransactionYear))
	}
	if err != nil {
		return time.Time{}, core.NewValidationError("date", "must be RFC3339, YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD")
	}
	return t, nil
}
