// Package validation holds the ordered rule chains applied to every mutating
// request. Each chain stops at the first failing rule and reports exactly one
// reason.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Rhymond/go-money"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	"github.com/kuztatygit/lemfi-qa-homework/shared/utils"
	"github.com/shopspring/decimal"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 64 // bcrypt ignores input past 72 bytes
	bookingDateLayout = "2006-01-02"
)

var (
	emailPattern         = regexp.MustCompile(`^[A-Za-z0-9._%+'-]+@[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)
	accountNumberPattern = regexp.MustCompile(`^[0-9]{4,30}$`)
	holderIDPattern      = regexp.MustCompile(`^[0-9]+(?:-[0-9]+)*$`)
	currencyPattern      = regexp.MustCompile(`^[A-Z]{3}$`)

	minAmount = decimal.New(1, -2) // 0.01
	maxAmount = decimal.New(1, 15) // fits NUMERIC(19,2) with headroom
)

// Rejection names the first field that failed and the message for the caller.
type Rejection struct {
	Field  string
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

type rule[T any] struct {
	field string
	valid func(T) bool
}

func firstFailure[T any](req T, chain []rule[T]) *Rejection {
	for _, r := range chain {
		if !r.valid(req) {
			return &Rejection{Field: r.field, Reason: "Invalid " + r.field}
		}
	}
	return nil
}

var registrationRules = []rule[models.RegistrationRequest]{
	{"email", func(r models.RegistrationRequest) bool { return validEmail(r.Email) }},
	{"password", func(r models.RegistrationRequest) bool { return validPassword(r.Password) }},
}

var personalDataRules = []rule[models.PersonalDataRequest]{
	{"firstName", func(r models.PersonalDataRequest) bool { return validProfileName(r.FirstName) }},
	{"surname", func(r models.PersonalDataRequest) bool { return validProfileName(r.Surname) }},
	{"personalId", func(r models.PersonalDataRequest) bool {
		_, err := PersonalID(r)
		return err == nil
	}},
}

// ValidateRegistration checks the shape of a sign-up request. Email
// uniqueness is enforced later by the identity store.
func ValidateRegistration(req models.RegistrationRequest) *Rejection {
	return firstFailure(req, registrationRules)
}

// ValidatePersonalData checks a profile update request.
func ValidatePersonalData(req models.PersonalDataRequest) *Rejection {
	return firstFailure(req, personalDataRules)
}

// Gate validates funding requests against a currency allow-list and a clock.
type Gate struct {
	currencies map[string]struct{}
	now        func() time.Time
	funding    []rule[models.FundingRequest]
}

// NewGate builds a Gate. Every allowed currency must be a known ISO 4217 code.
// A nil clock means time.Now.
func NewGate(currencies []string, now func() time.Time) (*Gate, error) {
	if now == nil {
		now = time.Now
	}
	g := &Gate{currencies: make(map[string]struct{}, len(currencies)), now: now}
	for _, code := range currencies {
		code = strings.ToUpper(strings.TrimSpace(code))
		if money.GetCurrency(code) == nil {
			return nil, fmt.Errorf("unknown currency %q in allow-list", code)
		}
		g.currencies[code] = struct{}{}
	}
	if len(g.currencies) == 0 {
		return nil, fmt.Errorf("currency allow-list is empty")
	}

	g.funding = []rule[models.FundingRequest]{
		{"accountNumber", func(r models.FundingRequest) bool { return accountNumberPattern.MatchString(r.AccountNumber) }},
		{"accountHolderFullName", func(r models.FundingRequest) bool { return validHolderName(r.AccountHolderFullName) }},
		{"accountHolderPersonalId", func(r models.FundingRequest) bool { return validHolderID(r.AccountHolderPersonalID) }},
		{"transactionType", func(r models.FundingRequest) bool { return r.TransactionType.IsKnown() }},
		{"investorId", func(r models.FundingRequest) bool {
			id, err := strconv.ParseInt(r.InvestorID.String(), 10, 64)
			return err == nil && id > 0
		}},
		{"amount", func(r models.FundingRequest) bool {
			_, err := FundingAmount(r)
			return err == nil
		}},
		{"currency", func(r models.FundingRequest) bool { return r.Amount != nil && g.allowedCurrency(r.Amount.Currency) }},
		{"bookingDate", func(r models.FundingRequest) bool { return g.validBookingDate(r.BookingDate) }},
	}
	return g, nil
}

// ValidateRegistration is the package function, exposed on the gate so that
// callers can depend on one value.
func (g *Gate) ValidateRegistration(req models.RegistrationRequest) *Rejection {
	return ValidateRegistration(req)
}

// ValidatePersonalData is the package function exposed on the gate.
func (g *Gate) ValidatePersonalData(req models.PersonalDataRequest) *Rejection {
	return ValidatePersonalData(req)
}

// ValidateFunding checks an add-funds request.
func (g *Gate) ValidateFunding(req models.FundingRequest) *Rejection {
	return firstFailure(req, g.funding)
}

func (g *Gate) allowedCurrency(code string) bool {
	if !currencyPattern.MatchString(code) || money.GetCurrency(code) == nil {
		return false
	}
	_, ok := g.currencies[code]
	return ok
}

func (g *Gate) validBookingDate(s string) bool {
	date, err := time.Parse(bookingDateLayout, s)
	if err != nil {
		return false
	}
	today := g.now().UTC().Truncate(24 * time.Hour)
	return !date.After(today)
}

// FundingAmount parses the amount of a funding request. It fails when the
// amount object or value is missing, below 0.01, above the supported maximum
// or carries more than two fractional digits.
func FundingAmount(req models.FundingRequest) (decimal.Decimal, error) {
	if req.Amount == nil || req.Amount.Amount == "" {
		return decimal.Zero, fmt.Errorf("amount is missing")
	}
	amount, err := decimal.NewFromString(req.Amount.Amount.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount is not a number: %w", err)
	}
	// Digits as written count, so 5.000 is rejected along with 5.001.
	if amount.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("amount %s has more than two fractional digits", req.Amount.Amount)
	}
	if amount.LessThan(minAmount) || amount.GreaterThan(maxAmount) {
		return decimal.Zero, fmt.Errorf("amount %s out of range", amount)
	}
	return amount.Round(2), nil
}

// PersonalID parses the 9-digit personal id of a profile update.
func PersonalID(req models.PersonalDataRequest) (int64, error) {
	id, err := strconv.ParseInt(req.PersonalID.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("personal id is not an integer: %w", err)
	}
	if id < 100_000_000 || id > 999_999_999 {
		return 0, fmt.Errorf("personal id %d is not 9 digits", id)
	}
	return id, nil
}

func validEmail(s string) bool {
	return s != "" && !utils.ContainsSpace(s) && emailPattern.MatchString(s)
}

func validPassword(s string) bool {
	if len(s) < minPasswordLength || len(s) > maxPasswordLength || utils.ContainsSpace(s) {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// validHolderName accepts letters with inner spaces, apostrophes, hyphens
// and dots. Leading or trailing whitespace is rejected.
func validHolderName(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == ' ' || r == '\'' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return letters > 0 && unicode.IsLetter([]rune(s)[0])
}

// validHolderID accepts 6 to 20 digits, optionally grouped by single hyphens
// as in 123-45-6789.
func validHolderID(s string) bool {
	if !holderIDPattern.MatchString(s) {
		return false
	}
	digits := len(strings.ReplaceAll(s, "-", ""))
	return digits >= 6 && digits <= 20
}

func validProfileName(s string) bool {
	return !utils.IsBlank(s) && !utils.ContainsDigit(s)
}
