package models

import (
	"fmt"
	"time"
)

// FactorType identifies a verification channel
type FactorType string

const (
	FactorEmail FactorType = "EMAIL"
	FactorSMS   FactorType = "SMS"
)

// VerificationAttempt is one issued one-time-code challenge.
// Only the newest record per (Username, FactorType) is live.
type VerificationAttempt struct {
	ID                string
	Username          string
	FactorType        FactorType
	IssuedAt          int64  // epoch millis
	Code              string // EMAIL only
	ProviderRequestID string // SMS only
	FailedAttempts    int
}

// IssuedAtTime returns IssuedAt as a time.Time
func (v *VerificationAttempt) IssuedAtTime() time.Time {
	return time.UnixMilli(v.IssuedAt)
}

// String omits the code value
func (v *VerificationAttempt) String() string {
	return fmt.Sprintf("VerificationAttempt{id=%s, username=%s, factorType=%s, issuedAt=%d, providerRequestId=%s, failedAttempts=%d}",
		v.ID, v.Username, v.FactorType, v.IssuedAt, v.ProviderRequestID, v.FailedAttempts)
}

// IPFailureRecord is an append-only login attempt audit entry
type IPFailureRecord struct {
	ID          string
	IPAddress   string
	Username    string
	AttemptedAt int64 // epoch millis
	Succeeded   bool
}

func (r *IPFailureRecord) String() string {
	return fmt.Sprintf("IPFailureRecord{ipAddress=%s, username=%s, attemptedAt=%d, succeeded=%t}",
		r.IPAddress, r.Username, r.AttemptedAt, r.Succeeded)
}
