package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
	"github.com/MikeSquared-Agency/Pathfinder/internal/store"
)

// ModelInfo mirrors the admin model response.
type ModelInfo struct {
	Release   string             `json:"release"`
	Features  []string           `json:"features"`
	Metrics   model.Metrics `json:"metrics"`
	TrainedAt time.Time          `json:"trainedAt"`
}

// Client talks to the admin surface of a running service.
type Client interface {
	UpsertOffer(ctx context.Context, o store.Offer) error
	Model(ctx context.Context) (*ModelInfo, error)
	Retrain(ctx context.Context) (*ModelInfo, error)
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		// Retraining fits three models synchronously.
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *HTTPClient) doReq(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("pathfinder %s %s: %d %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}

func (c *HTTPClient) UpsertOffer(ctx context.Context, o store.Offer) error {
	_, err := c.doReq(ctx, "POST", "/api/v1/admin/offers", o)
	return err
}

func (c *HTTPClient) Model(ctx context.Context) (*ModelInfo, error) {
	data, err := c.doReq(ctx, "GET", "/api/v1/admin/model", nil)
	if err != nil {
		return nil, err
	}
	var info ModelInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPClient) Retrain(ctx context.Context) (*ModelInfo, error) {
	data, err := c.doReq(ctx, "POST", "/api/v1/admin/retrain", nil)
	if err != nil {
		return nil, err
	}
	var info ModelInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
