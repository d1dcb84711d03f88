package auth

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// CodeGenerator produces six-digit one-time codes from a fresh TOTP secret per call
type CodeGenerator struct {
	issuer string
	now    func() time.Time
}

// NewCodeGenerator creates a generator whose secrets are labelled with issuer
func NewCodeGenerator(issuer string) *CodeGenerator {
	return &CodeGenerator{issuer: issuer, now: time.Now}
}

// Generate returns a new numeric code for accountName
func (g *CodeGenerator) Generate(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate code secret: %w", err)
	}

	code, err := totp.GenerateCodeCustom(key.Secret(), g.now(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	return code, nil
}
