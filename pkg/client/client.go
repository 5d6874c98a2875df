// Package client talks to the OSD scheduler over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"osdsched/pkg/log"
	"osdsched/pkg/models"
	"osdsched/pkg/osd"
)

// Client is a scheduler API client. Requests are retried on connection
// errors only; error responses are returned to the caller as *StatusError.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// New creates a client for the scheduler at baseURL.
func New(baseURL string, retryMax int, retryWaitMin, retryWaitMax, timeout time.Duration) *Client {
	httpClient := CreateRetryableClient(retryMax, retryWaitMin, retryWaitMax)
	httpClient.HTTPClient.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// CreateRetryableClient creates a retryable HTTP client for scheduler requests.
func CreateRetryableClient(retryMax int, retryWaitMin, retryWaitMax time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil // Disable retryablehttp logging
	// Scheduler error responses carry a reason and are never retried
	client.CheckRetry = retryOnConnectionError
	return client
}

// retryOnConnectionError retries only when no response was received.
func retryOnConnectionError(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil {
		return false, nil
	}

	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp reports the last error
	}

	return false, nil
}

// Announce pushes the encoded descriptor of desc to the scheduler.
func (c *Client) Announce(ctx context.Context, desc *osd.Description) (*models.NodeStatus, error) {
	var status models.NodeStatus
	err := c.do(ctx, http.MethodPut, c.osdPath(desc.Identifier(), "descriptor"),
		"application/octet-stream", osd.Encode(desc), http.StatusOK, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// FetchDescriptor downloads and decodes the scheduler's copy of a descriptor.
// The result never carries reservations.
func (c *Client) FetchDescriptor(ctx context.Context, id string) (*osd.Description, error) {
	var payload []byte
	if err := c.do(ctx, http.MethodGet, c.osdPath(id, "descriptor"), "", nil, http.StatusOK, &payload); err != nil {
		return nil, err
	}
	return osd.Decode(payload)
}

// Reserve asks the scheduler to admit and allocate a reservation on one OSD.
// A rejection is returned as ErrInsufficientResources.
func (c *Client) Reserve(ctx context.Context, id string, req models.ReservationRequest) (*osd.Reservation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var stored osd.Reservation
	if err := c.do(ctx, http.MethodPost, c.osdPath(id, "reservations"),
		"application/json", body, http.StatusCreated, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Release drops a reservation by ID.
func (c *Client) Release(ctx context.Context, id, reservationID string) error {
	return c.do(ctx, http.MethodDelete, c.osdPath(id, "reservations", reservationID), "", nil, http.StatusOK, nil)
}

// FreeResources returns the unreserved resources of one OSD.
func (c *Client) FreeResources(ctx context.Context, id string) (*osd.FreeResources, error) {
	var free osd.FreeResources
	if err := c.do(ctx, http.MethodGet, c.osdPath(id, "free"), "", nil, http.StatusOK, &free); err != nil {
		return nil, err
	}
	return &free, nil
}

// Nodes lists every OSD known to the scheduler.
func (c *Client) Nodes(ctx context.Context) ([]models.NodeStatus, error) {
	var list models.NodeList
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/osd", "", nil, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return list.Nodes, nil
}

func (c *Client) osdPath(id string, segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, url.PathEscape(id))
	for _, segment := range segments {
		parts = append(parts, url.PathEscape(segment))
	}
	return c.baseURL + "/osd/" + strings.Join(parts, "/")
}

// do sends one request. A *[]byte target receives the raw body; any other
// non-nil target is decoded as JSON.
func (c *Client) do(ctx context.Context, method, target, contentType string, body []byte, expected int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("url", target).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != expected {
		return newStatusError(resp)
	}

	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*dst, err = io.ReadAll(resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}
