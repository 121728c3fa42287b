package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/zoned/pkg/api"
	"github.com/cuemby/zoned/pkg/hostedzone"
)

// DefaultAddr is the management API address the CLI talks to by default
const DefaultAddr = "http://" + api.DefaultListenAddr

const requestTimeout = 10 * time.Second

// Client wraps the zoned management API for CLI usage
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the API at addr. A bare host:port is
// treated as plain HTTP.
func NewClient(addr string) (*Client, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid API address %q: %w", addr, errdefs.ErrInvalidArgument)
	}

	return &Client{
		base: strings.TrimSuffix(u.String(), "/") + "/" + api.Version,
		http: &http.Client{Timeout: requestTimeout},
	}, nil
}

// ListZones returns one page of hosted zones
func (c *Client) ListZones(maxItems int, marker string) (*hostedzone.ZoneList, error) {
	q := url.Values{}
	if maxItems > 0 {
		q.Set("maxitems", strconv.Itoa(maxItems))
	}
	if marker != "" {
		q.Set("marker", marker)
	}

	var resp hostedzone.ZoneList
	if err := c.do(http.MethodGet, "/hostedzone", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetZone gets a zone by id or name
func (c *Client) GetZone(idOrName string) (*api.GetZoneResponse, error) {
	var resp api.GetZoneResponse
	if err := c.do(http.MethodGet, "/hostedzone/"+url.PathEscape(idOrName), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateZone creates a new zone
func (c *Client) CreateZone(name, callerRef, comment string) (*api.CreateZoneResponse, error) {
	req := &api.CreateZoneRequest{
		Name:            name,
		CallerReference: callerRef,
		Comment:         comment,
	}

	var resp api.CreateZoneResponse
	if err := c.do(http.MethodPost, "/hostedzone", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteZone deletes a zone by id or name
func (c *Client) DeleteZone(idOrName string) (*hostedzone.ChangeInfo, error) {
	var resp api.ChangeInfoResponse
	if err := c.do(http.MethodDelete, "/hostedzone/"+url.PathEscape(idOrName), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.ChangeInfo, nil
}

// ListRecords returns one page of record sets, optionally starting at
// name and type
func (c *Client) ListRecords(zone, name, rtype string, maxItems int) (*hostedzone.RecordSetList, error) {
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if rtype != "" {
		q.Set("type", rtype)
	}
	if maxItems > 0 {
		q.Set("maxitems", strconv.Itoa(maxItems))
	}

	var resp hostedzone.RecordSetList
	if err := c.do(http.MethodGet, "/hostedzone/"+url.PathEscape(zone)+"/rrset", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangeRecords submits a change batch
func (c *Client) ChangeRecords(zone, comment string, changes []hostedzone.Change) (*hostedzone.ChangeInfo, error) {
	req := &api.ChangeBatchRequest{Comment: comment, Changes: changes}

	var resp api.ChangeInfoResponse
	if err := c.do(http.MethodPost, "/hostedzone/"+url.PathEscape(zone)+"/rrset", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp.ChangeInfo, nil
}

// GetChange gets the status of a change
func (c *Client) GetChange(id string) (*hostedzone.ChangeInfo, error) {
	var resp api.ChangeInfoResponse
	if err := c.do(http.MethodGet, "/change/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.ChangeInfo, nil
}

func (c *Client) do(method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns an API error body back into an errdefs class
func decodeError(resp *http.Response) error {
	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error.Message == "" {
		body.Error.Message = resp.Status
	}

	var class error = errdefs.ErrUnknown
	switch resp.StatusCode {
	case http.StatusNotFound:
		class = errdefs.ErrNotFound
	case http.StatusConflict:
		class = errdefs.ErrAlreadyExists
	case http.StatusBadRequest:
		class = errdefs.ErrInvalidArgument
	case http.StatusForbidden:
		class = errdefs.ErrPermissionDenied
	case http.StatusMethodNotAllowed:
		class = errdefs.ErrNotImplemented
	case http.StatusInternalServerError:
		class = errdefs.ErrInternal
	}
	return fmt.Errorf("%s: %w", body.Error.Message, class)
}
