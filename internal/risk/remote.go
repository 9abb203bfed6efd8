package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteRequest - тело запроса к внешней модели классификации
type RemoteRequest struct {
	Speed     float64   `json:"speed"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// RemoteResponse - ожидаемый строгий ответ модели
type RemoteResponse struct {
	RiskLevel  string  `json:"risk_level"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// RemoteClient - вызов внешней модели классификации
type RemoteClient interface {
	Classify(ctx context.Context, req RemoteRequest) (*RemoteResponse, error)
}

// HTTPRemoteClient - RemoteClient поверх HTTP JSON API
type HTTPRemoteClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPRemoteClient(url, apiKey string, timeout time.Duration) *HTTPRemoteClient {
	return &HTTPRemoteClient{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify отправляет признаки во внешний сервис и разбирает ответ.
// Любая транспортная ошибка, не-2xx статус или нечитаемое тело возвращаются
// как ошибка - вызывающая сторона переключается на детерминированное правило.
func (c *HTTPRemoteClient) Classify(ctx context.Context, reqBody RemoteRequest) (*RemoteResponse, error) {
	if c.url == "" {
		return nil, fmt.Errorf("classifier URL is not configured")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create classification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classification service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classification response: %w", err)
	}

	out := &RemoteResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification response: %w", err)
	}
	return out, nil
}
