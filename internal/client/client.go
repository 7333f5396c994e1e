// Package client is a small API client for a running voicewell server, used
// by the screenctl tool to submit records remotely.
package client

import (
	"fmt"
	"time"

	"voicewell/internal/model"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base  string
	token string
	rest  *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{base: base, rest: r}
}

type loginResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login obtains a session token that later calls are tagged with.
func (c *Client) Login(username, password string) error {
	resp := &loginResp{}
	httpResp, err := c.rest.R().
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(resp).
		Post(c.base + "/api/login")
	if err != nil {
		return err
	}
	if httpResp.IsError() {
		return fmt.Errorf("login: %s %s", httpResp.Status(), httpResp.String())
	}
	c.token = resp.Token
	return nil
}

// Predict submits a single raw record and returns the assembled result.
func (c *Client) Predict(features map[string]float64) (model.PredictionResult, error) {
	result := model.PredictionResult{}
	httpResp, err := c.rest.R().
		SetAuthToken(c.token).
		SetBody(map[string]interface{}{"features": features}).
		SetResult(&result).
		Post(c.base + "/api/predict")
	if err != nil {
		return model.PredictionResult{}, err
	}
	if httpResp.IsError() {
		return model.PredictionResult{}, fmt.Errorf("predict: %s %s", httpResp.Status(), httpResp.String())
	}
	return result, nil
}

// BatchResponse mirrors the server's CSV endpoint payload.
type BatchResponse struct {
	Results   []model.PredictionResult `json:"results"`
	RowErrors []string                 `json:"row_errors"`
}

// PredictCSV streams a CSV payload to the batch endpoint.
func (c *Client) PredictCSV(csvData []byte) (BatchResponse, error) {
	resp := BatchResponse{}
	httpResp, err := c.rest.R().
		SetAuthToken(c.token).
		SetHeader("Content-Type", "text/csv").
		SetBody(csvData).
		SetResult(&resp).
		Post(c.base + "/api/predict/csv")
	if err != nil {
		return BatchResponse{}, err
	}
	if httpResp.IsError() {
		return BatchResponse{}, fmt.Errorf("predict csv: %s %s", httpResp.Status(), httpResp.String())
	}
	return resp, nil
}

// ModelInfo fetches the serving artifact's metadata.
func (c *Client) ModelInfo() (map[string]interface{}, error) {
	info := map[string]interface{}{}
	httpResp, err := c.rest.R().
		SetResult(&info).
		Get(c.base + "/model/info")
	if err != nil {
		return nil, err
	}
	if httpResp.IsError() {
		return nil, fmt.Errorf("model info: %s %s", httpResp.Status(), httpResp.String())
	}
	return info, nil
}
