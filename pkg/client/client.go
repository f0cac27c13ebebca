// Package client talks to the ocvd daemon over its HTTP API.
package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/battkit/ocvd/pkg/api"
)

// Client is a struct for communicating with the ocvd daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient is a constructor for creating a new Client against addr
// (host:port).
func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + addr,
		httpClient: &http.Client{
			// Estimation requests with many starts can take a while.
			Timeout: 10 * time.Minute,
		},
	}
}

func (c *Client) do(method, path string, reqBody, respBody any) error {
	var payload io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return pkgerrors.Wrap(err, "encoding request")
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return pkgerrors.Wrap(err, "creating request")
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr *net.OpError
		if pkgerrors.As(err, &netErr) {
			return ErrDaemonNotRunning
		}
		return pkgerrors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(err, "reading response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.Wrapf(ErrNotFound, "%s", apiError(b))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.Errorf("got %d: %s", resp.StatusCode, apiError(b))
	}

	if respBody != nil {
		if err := json.Unmarshal(b, respBody); err != nil {
			return pkgerrors.Wrap(err, "decoding response")
		}
	}
	return nil
}

func apiError(body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return string(body)
}

// Health checks daemon liveness.
func (c *Client) Health() error {
	var resp api.HealthResponse
	return c.do(http.MethodGet, "/health", nil, &resp)
}

// Version returns the daemon version.
func (c *Client) Version() (api.VersionResponse, error) {
	var resp api.VersionResponse
	err := c.do(http.MethodGet, "/version", nil, &resp)
	return resp, err
}

// Catalog lists the available pristine profiles.
func (c *Client) Catalog() (api.CatalogResponse, error) {
	var resp api.CatalogResponse
	err := c.do(http.MethodGet, "/pristine/catalog", nil, &resp)
	return resp, err
}

// Curves runs the forward model.
func (c *Client) Curves(req api.CurvesRequest) (api.CurvesResponse, error) {
	var resp api.CurvesResponse
	err := c.do(http.MethodPost, "/ocv/curves", req, &resp)
	return resp, err
}

// Estimate runs the diagnostics estimator.
func (c *Client) Estimate(req api.EstimateRequest) (api.EstimateResponse, error) {
	var resp api.EstimateResponse
	err := c.do(http.MethodPost, "/diagnostics/estimate", req, &resp)
	return resp, err
}

// PoolSave stores a degradation result.
func (c *Client) PoolSave(req api.PoolSaveRequest) (api.PoolSaveResponse, error) {
	var resp api.PoolSaveResponse
	err := c.do(http.MethodPost, "/pool/save", req, &resp)
	return resp, err
}

// PoolList lists stored degradation results.
func (c *Client) PoolList() (api.PoolListResponse, error) {
	var resp api.PoolListResponse
	err := c.do(http.MethodGet, "/pool/list", nil, &resp)
	return resp, err
}

// PoolLoad loads one stored degradation result as raw JSON.
func (c *Client) PoolLoad(id string) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.do(http.MethodPost, "/pool/load", api.PoolLoadRequest{ID: id}, &resp)
	return resp, err
}
