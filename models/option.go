package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidParameter is matched by every InvalidParameterError via errors.Is.
var ErrInvalidParameter = errors.New("invalid parameter")

// InvalidParameterError reports a pricing input outside its domain.
type InvalidParameterError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid parameter %s=%v: %s", e.Param, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid parameter %s=%v", e.Param, e.Value)
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

type OptionType int

const (
	Call OptionType = iota
	Put
)

func (t OptionType) String() string {
	if t == Put {
		return "put"
	}
	return "call"
}

func (t OptionType) IsCall() bool {
	return t == Call
}

func (t OptionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *OptionType) UnmarshalText(b []byte) error {
	parsed, err := ParseOptionType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t OptionType) MarshalCSV() (string, error) {
	return t.String(), nil
}

func (t *OptionType) UnmarshalCSV(s string) error {
	return t.UnmarshalText([]byte(s))
}

// ParseOptionType accepts "call"/"put" (or "c"/"p"), case-insensitive.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return Call, &InvalidParameterError{Param: "option_type", Value: math.NaN(), Reason: fmt.Sprintf("unknown option type %q", s)}
}

// Contract is a European option together with the market state it is priced under.
type Contract struct {
	Spot          float64    `json:"spot"`
	Strike        float64    `json:"strike"`
	Maturity      float64    `json:"maturity"` // years
	Rate          float64    `json:"rate"`
	Volatility    float64    `json:"volatility"`
	DividendYield float64    `json:"dividend_yield"`
	Type          OptionType `json:"type"`
}

// Validate checks that S, K, T and sigma are strictly positive and finite, and
// that r and q are finite with q >= 0.
func (c Contract) Validate() error {
	if err := positive("spot", c.Spot); err != nil {
		return err
	}
	if err := positive("strike", c.Strike); err != nil {
		return err
	}
	if err := positive("maturity", c.Maturity); err != nil {
		return err
	}
	if err := positive("volatility", c.Volatility); err != nil {
		return err
	}
	if math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
		return &InvalidParameterError{Param: "rate", Value: c.Rate, Reason: "must be finite"}
	}
	if math.IsNaN(c.DividendYield) || math.IsInf(c.DividendYield, 0) || c.DividendYield < 0 {
		return &InvalidParameterError{Param: "dividend_yield", Value: c.DividendYield, Reason: "must be finite and non-negative"}
	}
	return nil
}

// WithVolatility returns a copy of c priced at sigma.
func (c Contract) WithVolatility(sigma float64) Contract {
	c.Volatility = sigma
	return c
}

func positive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidParameterError{Param: name, Value: v, Reason: "must be finite"}
	}
	if v <= 0 {
		return &InvalidParameterError{Param: name, Value: v, Reason: "must be strictly positive"}
	}
	return nil
}
