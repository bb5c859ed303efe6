package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // calendars name their zone.

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Configuration files of the data directory.
const (
	PolicyFile   = "policy.json"
	CalendarFile = "cutoff_calendar.json"
	ModelFile    = "ar_ap_model_params.json"
)

// ErrMissingFile is returned when a configuration file does not exist.
var ErrMissingFile = errors.New("missing configuration file")

var validate = validator.New()

type whitelistEntry struct {
	Instrument   string          `json:"instrument" validate:"required"`
	Issuer       string          `json:"issuer" validate:"required"`
	MaxAmount    decimal.Decimal `json:"max_amount"`
	MaxTenorDays int             `json:"max_tenor_days" validate:"gte=0"`
	RateBps      int             `json:"rate_bps" validate:"gte=0"`
}

type policyFile struct {
	Currency               string                     `json:"currency" validate:"len=3"`
	MinOperatingCash       decimal.Decimal            `json:"min_operating_cash"`
	PayrollBuffer          decimal.Decimal            `json:"payroll_buffer"`
	TaxBuffer              decimal.Decimal            `json:"tax_buffer"`
	VendorTierBuffers      map[string]decimal.Decimal `json:"vendor_tier_buffers"`
	OutflowShockMultiplier decimal.Decimal            `json:"outflow_shock_multiplier"`
	RecognitionRatio       decimal.Decimal            `json:"recognition_ratio_expected_inflows"`
	APProvisionDays        int                        `json:"ap_provision_days" validate:"gte=0,lte=365"`
	ApprovalThreshold      decimal.Decimal            `json:"approval_threshold"`
	MaxOrderAmount         decimal.Decimal            `json:"max_order_amount"`
	Whitelist              []whitelistEntry           `json:"whitelist" validate:"dive"`
}

type calendarFile struct {
	Timezone string      `json:"timezone" validate:"required"`
	Cutoff   string      `json:"cutoff" validate:"required"`
	Holidays []date.Date `json:"holidays"`
	Weekend  []string    `json:"weekend" validate:"dive,oneof=sunday monday tuesday wednesday thursday friday saturday"`
}

type modelFile struct {
	NearDays   int                        `json:"near_days" validate:"gte=0"`
	MidDays    int                        `json:"mid_days" validate:"gtefield=NearDays"`
	Collection map[string]decimal.Decimal `json:"collection_probabilities" validate:"required"`
	Payment    map[string]decimal.Decimal `json:"payment_probabilities" validate:"required"`
}

// Load reads the three configuration files of dir into run settings. Any
// missing file, invalid JSON or invalid value is an error: nothing can be
// computed from a partial configuration.
func Load(dir string, horizon int) (treasury.Settings, error) {
	var s treasury.Settings
	var err error
	if s.Policy, err = LoadPolicy(filepath.Join(dir, PolicyFile)); err != nil {
		return s, err
	}
	if s.Calendar, err = LoadCalendar(filepath.Join(dir, CalendarFile)); err != nil {
		return s, err
	}
	if s.Model, err = LoadModel(filepath.Join(dir, ModelFile)); err != nil {
		return s, err
	}
	s.HorizonDays = horizon
	return s, nil
}

// readJSON decodes the file at path into v then validates v.
func readJSON(path string, v any) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingFile, path)
	}
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid %s: %w", path, validationError(err))
	}
	return nil
}

// validationError lists the failing fields and their rule.
func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	fields := make([]string, 0, len(ves))
	for _, ve := range ves {
		fields = append(fields, fmt.Sprintf("%s failed %q", ve.Namespace(), ve.Tag()))
	}
	return errors.New(strings.Join(fields, ", "))
}

// LoadPolicy reads a policy file. Amounts are in major units. Missing keys
// take the desk defaults: INR, a 0.40 recognition ratio, a 14 days AP
// provision and a 5,00,000 approval threshold.
func LoadPolicy(path string) (treasury.PolicyConfig, error) {
	f := policyFile{
		Currency:               "INR",
		OutflowShockMultiplier: decimal.NewFromInt(1),
		RecognitionRatio:       decimal.RequireFromString("0.40"),
		APProvisionDays:        14,
		ApprovalThreshold:      decimal.NewFromInt(500_000),
	}
	if err := readJSON(path, &f); err != nil {
		return treasury.PolicyConfig{}, err
	}
	cur := f.Currency
	p := treasury.PolicyConfig{
		Currency:               cur,
		MinOperatingCash:       treasury.FromMajor(f.MinOperatingCash, cur),
		PayrollBuffer:          treasury.FromMajor(f.PayrollBuffer, cur),
		TaxBuffer:              treasury.FromMajor(f.TaxBuffer, cur),
		VendorTierBuffers:      make(map[treasury.VendorTier]treasury.Money),
		OutflowShockMultiplier: f.OutflowShockMultiplier,
		RecognitionRatio:       f.RecognitionRatio,
		APProvisionDays:        f.APProvisionDays,
		ApprovalThreshold:      treasury.FromMajor(f.ApprovalThreshold, cur),
		MaxOrderAmount:         treasury.FromMajor(f.MaxOrderAmount, cur),
	}
	for k, v := range f.VendorTierBuffers {
		tier, err := treasury.ParseVendorTier(k)
		if err != nil {
			return treasury.PolicyConfig{}, fmt.Errorf("invalid %s: %w", path, err)
		}
		p.VendorTierBuffers[tier] = treasury.FromMajor(v, cur)
	}
	for _, w := range f.Whitelist {
		p.Whitelist = append(p.Whitelist, treasury.Instrument{
			Name:         w.Instrument,
			Issuer:       w.Issuer,
			MaxAmount:    treasury.FromMajor(w.MaxAmount, cur),
			MaxTenorDays: w.MaxTenorDays,
			RateBps:      w.RateBps,
		})
	}
	if err := p.Validate(); err != nil {
		return treasury.PolicyConfig{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return p, nil
}

// LoadCalendar reads a cutoff calendar file. The cutoff is a "15:04" wall
// clock in the calendar time zone.
func LoadCalendar(path string) (treasury.CutoffCalendar, error) {
	f := calendarFile{
		Timezone: "Asia/Kolkata",
		Cutoff:   "14:00",
		Weekend:  []string{"saturday", "sunday"},
	}
	if err := readJSON(path, &f); err != nil {
		return treasury.CutoffCalendar{}, err
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return treasury.CutoffCalendar{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	cutoff, err := time.Parse("15:04", f.Cutoff)
	if err != nil {
		return treasury.CutoffCalendar{}, fmt.Errorf("invalid %s: cutoff %q: %w", path, f.Cutoff, err)
	}
	c := treasury.CutoffCalendar{
		Location:     loc,
		CutoffHour:   cutoff.Hour(),
		CutoffMinute: cutoff.Minute(),
		Holidays:     f.Holidays,
	}
	for _, wd := range f.Weekend {
		c.Weekend = append(c.Weekend, weekdays[wd])
	}
	if err := c.Validate(); err != nil {
		return treasury.CutoffCalendar{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return c, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadModel reads a probability model file. Keys of both tables are tier
// names, like "within_7_days".
func LoadModel(path string) (treasury.ProbabilityModel, error) {
	def := treasury.DefaultModel()
	f := modelFile{NearDays: def.NearDays, MidDays: def.MidDays}
	if err := readJSON(path, &f); err != nil {
		return treasury.ProbabilityModel{}, err
	}
	m := treasury.ProbabilityModel{NearDays: f.NearDays, MidDays: f.MidDays}
	var err error
	if m.Collection, err = tiers(f.Collection); err != nil {
		return treasury.ProbabilityModel{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	if m.Payment, err = tiers(f.Payment); err != nil {
		return treasury.ProbabilityModel{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return treasury.ProbabilityModel{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return m, nil
}

func tiers(probs map[string]decimal.Decimal) (map[treasury.Tier]decimal.Decimal, error) {
	res := make(map[treasury.Tier]decimal.Decimal, len(probs))
	for k, p := range probs {
		t, err := treasury.ParseTier(k)
		if err != nil {
			return nil, err
		}
		res[t] = p
	}
	return res, nil
}
