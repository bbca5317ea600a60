package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is the reCAPTCHA siteverify endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// BotScoreVerifier asks an external service to score a client token.
type BotScoreVerifier interface {
	// Verify returns the service verdict. A non-nil error means the
	// service could not be asked (network, timeout, non-2xx, bad body).
	Verify(ctx context.Context, token, remoteIP string) (*BotScoreResult, error)
}

// BotScoreResult is the siteverify response.
type BotScoreResult struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	Hostname   string   `json:"hostname,omitempty"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// BotScorePolicy decides what a verification outcome means.
type BotScorePolicy struct {
	Threshold float64

	// FailOpen admits the request when the service cannot be reached.
	FailOpen bool
}

// Bot-score outcomes, also used as metric labels.
const (
	BotScorePass        = "pass"
	BotScoreFail        = "fail"
	BotScoreLowScore    = "low_score"
	BotScoreUnavailable = "unavailable"
)

// Evaluate maps a Verify outcome to pass/fail and an outcome label.
func (p BotScorePolicy) Evaluate(res *BotScoreResult, err error) (bool, string) {
	if err != nil || res == nil {
		return p.FailOpen, BotScoreUnavailable
	}
	if !res.Success {
		return false, BotScoreFail
	}
	if res.Score != nil && *res.Score < p.Threshold {
		return false, BotScoreLowScore
	}
	return true, BotScorePass
}

// RecaptchaVerifier calls the reCAPTCHA v3 siteverify API.
type RecaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// NewRecaptchaVerifier creates a verifier. An empty verifyURL selects
// DefaultVerifyURL; a zero timeout selects 10s.
func NewRecaptchaVerifier(secret, verifyURL string, timeout time.Duration) *RecaptchaVerifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RecaptchaVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// Verify implements BotScoreVerifier.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (*BotScoreResult, error) {
	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("siteverify: status %d", resp.StatusCode)
	}

	var res BotScoreResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&res); err != nil {
		return nil, fmt.Errorf("siteverify: decode: %w", err)
	}
	return &res, nil
}
