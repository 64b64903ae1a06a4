package model

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeFormat is the timestamp layout used across all tables. The store keeps
// human-readable minute-precision strings rather than RFC 3339.
const TimeFormat = "2006-01-02 15:04"

// FormatTime renders t in the store's timestamp layout.
func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

// shortID returns the first eight hex characters of a fresh UUID, uppercased.
func shortID() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:4]))
}

// NewItemID generates a globally unique item identifier.
func NewItemID() string { return "ITM-" + shortID() }

// NewReportID generates a globally unique report identifier.
func NewReportID() string { return "RPT-" + shortID() }

// NewLogID generates a usage log entry identifier.
func NewLogID() string { return shortID() }

// NewSubID generates a push subscription identifier.
func NewSubID() string { return "SUB-" + shortID() }
