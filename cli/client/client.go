package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/goccy/go-json"
	"github.com/wkalt/tsjoin/catalog"
	"github.com/wkalt/tsjoin/cli/util"
	"github.com/wkalt/tsjoin/routes"
	"github.com/wkalt/tsjoin/table"
)

/*
Client is an HTTP client for the tsjoin server. Every request carries the
shared key as a bearer token. Non-200 responses are returned as util.APIError.
*/

////////////////////////////////////////////////////////////////////////////////

// Client is a tsjoin API client.
type Client struct {
	serverURL string
	httpc     *http.Client
}

// New constructs a new client.
func New(serverURL, sharedKey string) *Client {
	return &Client{
		serverURL: serverURL,
		httpc:     NewHTTPClient(sharedKey),
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if err := util.CheckResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", buf, out)
}

func tablePath(name string) string {
	return "/tables/" + url.PathEscape(name)
}

// Import uploads a CSV or JSON file as a new version of the named table.
func (c *Client) Import(ctx context.Context, name string, path string, types string) (*catalog.Entry, error) {
	contentType, err := util.ContentType(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	target := tablePath(name)
	if types != "" {
		target += "?" + url.Values{"types": {types}}.Encode()
	}
	entry := &catalog.Entry{}
	if err := c.do(ctx, http.MethodPost, target, contentType, f, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Put uploads an in-memory table as a new version of the named table.
func (c *Client) Put(ctx context.Context, name string, t *table.Table) (*catalog.Entry, error) {
	entry := &catalog.Entry{}
	if err := c.postJSON(ctx, tablePath(name), t, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get retrieves the latest version of a table.
func (c *Client) Get(ctx context.Context, name string) (*table.Table, error) {
	t := &table.Table{}
	if err := c.do(ctx, http.MethodGet, tablePath(name), "", nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Tables lists the latest version of every table.
func (c *Client) Tables(ctx context.Context) ([]catalog.Entry, error) {
	entries := []catalog.Entry{}
	if err := c.do(ctx, http.MethodGet, "/tables", "", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Versions lists every version of a table.
func (c *Client) Versions(ctx context.Context, name string) ([]catalog.Entry, error) {
	entries := []catalog.Entry{}
	if err := c.do(ctx, http.MethodGet, tablePath(name)+"/versions", "", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes a table and all of its versions.
func (c *Client) Delete(ctx context.Context, name string) error {
	resp := routes.DeleteResponse{}
	return c.do(ctx, http.MethodDelete, tablePath(name), "", nil, &resp)
}

// Query executes a query.
func (c *Client) Query(ctx context.Context, query string, explain bool) (*routes.QueryResponse, error) {
	resp := &routes.QueryResponse{}
	req := routes.QueryRequest{Query: query, Explain: explain}
	if err := c.postJSON(ctx, "/query", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Join executes a structured as-of join.
func (c *Client) Join(ctx context.Context, req routes.JoinRequest) (*routes.QueryResponse, error) {
	resp := &routes.QueryResponse{}
	if err := c.postJSON(ctx, "/join", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type transport struct {
	key string
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.key)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// NewHTTPClient returns an HTTP client that authenticates with sharedKey.
func NewHTTPClient(sharedKey string) *http.Client {
	return &http.Client{
		Transport: &transport{key: sharedKey},
	}
}
