package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CaptchaScorer rates how likely a proof token came from a human (1.0) rather than a bot (0.0)
type CaptchaScorer interface {
	Score(ctx context.Context, proofToken string) (float64, error)
}

// RecaptchaEnterpriseScorer creates reCAPTCHA Enterprise assessments over REST
type RecaptchaEnterpriseScorer struct {
	projectID  string
	siteKey    string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type assessmentRequest struct {
	Event assessmentEvent `json:"event"`
}

type assessmentEvent struct {
	Token   string `json:"token"`
	SiteKey string `json:"siteKey"`
}

type assessmentResponse struct {
	TokenProperties struct {
		Valid         bool   `json:"valid"`
		InvalidReason string `json:"invalidReason"`
	} `json:"tokenProperties"`
	RiskAnalysis struct {
		Score float64 `json:"score"`
	} `json:"riskAnalysis"`
}

// NewRecaptchaEnterpriseScorer creates a scorer for one project and site key
func NewRecaptchaEnterpriseScorer(projectID, siteKey, apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *RecaptchaEnterpriseScorer {
	return &RecaptchaEnterpriseScorer{
		projectID:  projectID,
		siteKey:    siteKey,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Score returns the assessment risk score. An invalid token scores zero.
func (s *RecaptchaEnterpriseScorer) Score(ctx context.Context, proofToken string) (float64, error) {
	if strings.TrimSpace(proofToken) == "" {
		return 0, nil
	}

	payload, err := json.Marshal(assessmentRequest{Event: assessmentEvent{Token: proofToken, SiteKey: s.siteKey}})
	if err != nil {
		return 0, fmt.Errorf("failed to encode assessment: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/assessments?key=%s",
		s.baseURL, url.PathEscape(s.projectID), url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build assessment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("assessment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("assessment returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var assessment assessmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return 0, fmt.Errorf("failed to decode assessment: %w", err)
	}

	if !assessment.TokenProperties.Valid {
		s.logger.Info("captcha token invalid", slog.String("reason", assessment.TokenProperties.InvalidReason))
		return 0, nil
	}

	return assessment.RiskAnalysis.Score, nil
}
