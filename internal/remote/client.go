package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"admin-panel/internal/domain"
)

const (
	defaultTimeout      = 10 * time.Second
	maxErrorBodyBytes   = 4 << 10
	defaultRejectedText = "Invalid OTP"
	userAgent           = "admin-panel"
)

// OTPService es el contrato del servicio remoto que emite y verifica codigos.
type OTPService interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (domain.VerificationResponse, error)
}

// TransportError cubre fallas de red, status inesperados o cuerpos ilegibles.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedCodeError indica que el servicio rechazo explicitamente el codigo.
type RejectedCodeError struct {
	StatusCode int
	Message    string
}

func (e *RejectedCodeError) Error() string {
	return e.Message
}

// HTTPClient implementa OTPService contra la API HTTP del backend.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye un cliente apuntando a la base de la API (ej. https://host/web).
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// SendOTP pide al servicio que envie un codigo al email. El cuerpo se ignora.
func (c *HTTPClient) SendOTP(ctx context.Context, email string) error {
	query := url.Values{}
	query.Set("mail", email)

	resp, err := c.post(ctx, "/otp_send", query)
	if err != nil {
		return &TransportError{Op: "otp send", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("otp send rejected", zap.Int("status", resp.StatusCode))
		return &TransportError{Op: "otp send", StatusCode: resp.StatusCode}
	}
	return nil
}

// VerifyOTP envia email y codigo. Solo un 200 con success distinto de false cuenta como exito.
func (c *HTTPClient) VerifyOTP(ctx context.Context, email, code string) (domain.VerificationResponse, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("otp", code)

	resp, err := c.post(ctx, "/otp_verify", query)
	if err != nil {
		return domain.VerificationResponse{}, &TransportError{Op: "otp verify", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Info("otp verify rejected", zap.Int("status", resp.StatusCode))
		return domain.VerificationResponse{}, &RejectedCodeError{
			StatusCode: resp.StatusCode,
			Message:    rejectionMessage(resp.Header.Get("Content-Type"), body),
		}
	}

	var result domain.VerificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.VerificationResponse{}, &TransportError{Op: "otp verify", Err: fmt.Errorf("decode response: %w", err)}
	}
	if result.Rejected() {
		msg := defaultRejectedText
		if result.Message != nil && strings.TrimSpace(*result.Message) != "" {
			msg = strings.TrimSpace(*result.Message)
		}
		return domain.VerificationResponse{}, &RejectedCodeError{StatusCode: resp.StatusCode, Message: msg}
	}
	return result, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain")
	return c.client.Do(req)
}

// rejectionMessage usa el cuerpo como mensaje solo si es texto legible.
func rejectionMessage(contentType string, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return defaultRejectedText
	}
	if strings.Contains(strings.ToLower(contentType), "json") {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			switch {
			case strings.TrimSpace(payload.Message) != "":
				return strings.TrimSpace(payload.Message)
			case strings.TrimSpace(payload.Error) != "":
				return strings.TrimSpace(payload.Error)
			}
		}
		return defaultRejectedText
	}
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		return defaultRejectedText
	}
	return text
}

// IsTransport reporta si err es una falla de transporte.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsRejected extrae el rechazo explicito del codigo, si lo hay.
func AsRejected(err error) (*RejectedCodeError, bool) {
	var re *RejectedCodeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
