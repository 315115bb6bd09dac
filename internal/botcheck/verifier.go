// Package botcheck scores client-supplied tokens against an external
// verification service. Any transport failure, timeout, or malformed response
// counts as a rejection: this path guards the submission endpoint and must
// fail closed.
package botcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contact-gateway/internal/common/config"
	"contact-gateway/internal/common/httpclient"
	"contact-gateway/internal/common/logger"
)

// Config holds the verification endpoint settings.
type Config struct {
	SecretKey string
	VerifyURL string
	MinScore  float64
	Timeout   time.Duration
}

func ConfigFrom(cfg config.RecaptchaConfig) Config {
	return Config{
		SecretKey: cfg.SecretKey,
		VerifyURL: cfg.VerifyURL,
		MinScore:  cfg.MinScore,
		Timeout:   config.GetDuration(cfg.Timeout),
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	ErrorCodes []string `json:"error-codes"`
}

// Verifier submits tokens to the scoring endpoint and applies the minimum
// score policy.
type Verifier struct {
	config Config
	client *httpclient.Client
	logger logger.Logger
}

func NewVerifier(cfg Config, log logger.Logger) *Verifier {
	return &Verifier{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
		logger: log,
	}
}

// Verify reports whether the token passes the score policy. Callers skip the
// call entirely when the submission carries no token.
func (v *Verifier) Verify(ctx context.Context, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	form := url.Values{}
	form.Set("secret", v.config.SecretKey)
	form.Set("response", token)

	req, err := http.NewRequest(http.MethodPost, v.config.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		v.logger.Error("bot verification request build failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.DoWithContext(ctx, req)
	if err != nil {
		v.logger.Warn("bot verification call failed, rejecting", map[string]interface{}{"error": err.Error()})
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("bot verification returned non-OK status, rejecting", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return false
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		v.logger.Warn("bot verification response malformed, rejecting", map[string]interface{}{"error": err.Error()})
		return false
	}

	if !result.Success {
		v.logger.Info("bot verification unsuccessful", map[string]interface{}{
			"errorCodes": fmt.Sprintf("%v", result.ErrorCodes),
		})
		return false
	}

	if result.Score < v.config.MinScore {
		v.logger.Info("bot verification score below threshold", map[string]interface{}{
			"score":    result.Score,
			"minScore": v.config.MinScore,
		})
		return false
	}

	return true
}
