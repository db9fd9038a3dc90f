package core

import (
	"strings"
	"time"
)

// ConnectionStatus represents the broker connection state
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// Valid reports whether s is one of the known states.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case StatusDisconnected, StatusConnecting, StatusConnected:
		return true
	}
	return false
}

// Credentials identify an account on a broker terminal.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Server   string `json:"server"`
	Terminal string `json:"terminal"`
}

const maskedPassword = "********"

// Validate checks that every field is present.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(c.Password) == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(c.Server) == "" {
		missing = append(missing, "server")
	}
	if strings.TrimSpace(c.Terminal) == "" {
		missing = append(missing, "terminal")
	}
	if len(missing) > 0 {
		return WrapError(ErrCredentialsInvalid,
			&MissingFieldsError{Fields: missing})
	}
	return nil
}

// Masked returns a copy safe for logs and API output.
func (c Credentials) Masked() Credentials {
	if c.Password != "" {
		c.Password = maskedPassword
	}
	return c
}

// MissingFieldsError lists required fields that were empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing " + strings.Join(e.Fields, ", ")
}

// AccountSnapshot is the account state captured from the terminal.
type AccountSnapshot struct {
	Login      int64   `json:"login"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Leverage   int     `json:"leverage"`
	Name       string  `json:"name"`
	Server     string  `json:"server"`
}

// Trend biases a synthetic series
type Trend string

const (
	TrendUp       Trend = "up"
	TrendDown     Trend = "down"
	TrendSideways Trend = "sideways"
)

// Valid reports whether t is a known trend.
func (t Trend) Valid() bool {
	switch t {
	case TrendUp, TrendDown, TrendSideways:
		return true
	}
	return false
}

// TimeSeriesPoint is one sample of an indicator series.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// CorrelationPoint is a rolling correlation sample between two pairs.
type CorrelationPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Pair1     string    `json:"pair1"`
	Pair2     string    `json:"pair2"`
}

// RSIPoint is an RSI sample for one pair.
type RSIPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Pair      string    `json:"pair"`
}
