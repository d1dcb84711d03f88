package services

import (
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

// SMSProvider sends and checks provider-held SMS verification codes
type SMSProvider interface {
	StartVerification(ctx context.Context, phoneNumber, brand string) (string, error)
	CheckVerification(ctx context.Context, requestID, code string) (bool, error)
	CancelVerification(ctx context.Context, requestID string) error
}

// vonageStatusOK is the Verify API success status
const vonageStatusOK = "0"

// VonageVerifyClient talks to the Vonage Verify v1 REST API
type VonageVerifyClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type vonageResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	ErrorText string `json:"error_text"`
}

// NewVonageVerifyClient creates a Verify client against baseURL
func NewVonageVerifyClient(apiKey, apiSecret, baseURL string, timeout time.Duration, logger *slog.Logger) *VonageVerifyClient {
	return &VonageVerifyClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// StartVerification asks the provider to text a code to phoneNumber and returns its request id.
// A non-OK provider status yields an empty id and no error.
func (c *VonageVerifyClient) StartVerification(ctx context.Context, phoneNumber, brand string) (string, error) {
	form := url.Values{}
	form.Set("number", phoneNumber)
	form.Set("brand", brand)

	resp, err := c.post(ctx, "/verify/json", form)
	if err != nil {
		return "", err
	}

	if resp.Status != vonageStatusOK {
		c.logger.Error("sms verification request rejected",
			slog.String("status", resp.Status),
			slog.String("error_text", resp.ErrorText))
		return "", nil
	}

	c.logger.Debug("sms verification requested", slog.String("request_id", resp.RequestID))
	return resp.RequestID, nil
}

// CheckVerification reports whether code is accepted for requestID.
// Every non-OK provider status counts as a rejection.
func (c *VonageVerifyClient) CheckVerification(ctx context.Context, requestID, code string) (bool, error) {
	form := url.Values{}
	form.Set("request_id", requestID)
	form.Set("code", code)

	resp, err := c.post(ctx, "/verify/check/json", form)
	if err != nil {
		return false, err
	}

	if resp.Status != vonageStatusOK {
		c.logger.Info("sms verification check rejected",
			slog.String("request_id", requestID),
			slog.String("status", resp.Status))
		return false, nil
	}

	return true, nil
}

// CancelVerification ends an in-flight verification request
func (c *VonageVerifyClient) CancelVerification(ctx context.Context, requestID string) error {
	form := url.Values{}
	form.Set("request_id", requestID)
	form.Set("cmd", "cancel")

	resp, err := c.post(ctx, "/verify/control/json", form)
	if err != nil {
		return err
	}

	if resp.Status != vonageStatusOK {
		return fmt.Errorf("cancel rejected with status %s: %s", resp.Status, resp.ErrorText)
	}
	return nil
}

func (c *VonageVerifyClient) post(ctx context.Context, path string, form url.Values) (*vonageResponse, error) {
	form.Set("api_key", c.apiKey)
	form.Set("api_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build sms provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms provider request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("sms provider returned HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp vonageResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode sms provider response: %w", err)
	}

	return &resp, nil
}
