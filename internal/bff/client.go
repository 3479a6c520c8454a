// Package bff is the HTTP client for the attendance backend-for-frontend.
// Submit performs exactly one POST and maps the response into a closed set of
// result kinds; retry and queueing policy live with the caller.
package bff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akipresenca/aki_device_agent/internal/models"
)

type ResultKind string

const (
	Success            ResultKind = "success"
	DeviceNotLinked    ResultKind = "device_not_linked"
	InvalidGeolocation ResultKind = "invalid_geolocation"
	Error              ResultKind = "error"
)

// Result is the outcome of one submission attempt. Network marks transport
// failures where no response arrived, so callers can queue instead of
// surfacing a user-facing error.
type Result struct {
	Kind    ResultKind
	Message string
	Network bool
}

// RegistrationResponse is the body of POST {base}/students/device.
type RegistrationResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	DeviceID string `json:"device_id"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured BFF base, used by the connectivity probe.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// attendanceResponse covers the response shapes the BFF is known to produce.
type attendanceResponse struct {
	Status  string `json:"status"`
	Result  string `json:"result"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit posts one attendance event. It never retries.
func (c *Client) Submit(ctx context.Context, p models.AttendancePayload) Result {
	body, err := json.Marshal(p)
	if err != nil {
		return Result{Kind: Error, Message: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events/attendance", bytes.NewReader(body))
	if err != nil {
		return Result{Kind: Error, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Kind: Error, Message: fmt.Sprintf("network error: %v", err), Network: true}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var data attendanceResponse
	_ = json.Unmarshal(raw, &data)

	// Recognized business error codes win regardless of HTTP status.
	switch {
	case data.Error == string(DeviceNotLinked) || data.Code == string(DeviceNotLinked):
		return Result{Kind: DeviceNotLinked, Message: orDefault(data.Message, "device not linked")}
	case data.Error == string(InvalidGeolocation) || data.Code == string(InvalidGeolocation):
		return Result{Kind: InvalidGeolocation, Message: orDefault(data.Message, "location rejected")}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if data.Status == "ok" || data.Result == "success" {
			return Result{Kind: Success, Message: orDefault(data.Message, "attendance confirmed")}
		}
		if data.Status == "error" || data.Result == "error" {
			return Result{Kind: Error, Message: orDefault(data.Message, "attendance rejected")}
		}
		// Lenient default: the backend response shape varies and a 2xx
		// without a recognized error code counts as confirmation.
		return Result{Kind: Success, Message: orDefault(data.Message, "attendance confirmed")}
	}

	return Result{Kind: Error, Message: orDefault(data.Message, fmt.Sprintf("server returned %d", resp.StatusCode))}
}

// RegisterDevice links this device to a student via POST {base}/students/device.
func (c *Client) RegisterDevice(ctx context.Context, studentCPF, deviceID string) (RegistrationResponse, error) {
	body, err := json.Marshal(map[string]string{
		"cpf":       studentCPF,
		"device_id": deviceID,
	})
	if err != nil {
		return RegistrationResponse{}, fmt.Errorf("encode registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/students/device", bytes.NewReader(body))
	if err != nil {
		return RegistrationResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return RegistrationResponse{}, fmt.Errorf("register device: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out RegistrationResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return RegistrationResponse{}, fmt.Errorf("decode registration response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("register device: server returned %d: %s", resp.StatusCode, out.Message)
	}
	return out, nil
}

func orDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
