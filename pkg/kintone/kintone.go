package kintone

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/kselect/internal/utils"
	"github.com/sw33tLie/kselect/pkg/company"
	"github.com/sw33tLie/kselect/pkg/config"
	"github.com/sw33tLie/kselect/pkg/whttp"
	"github.com/tidwall/gjson"
)

const (
	API_TOKEN_HEADER     = "X-Cybozu-API-Token"
	PASSWORD_AUTH_HEADER = "X-Cybozu-Authorization"
	DEFAULT_RETRY_MAX    = 3
)

// Fetcher returns the current company master list.
type Fetcher interface {
	FetchCompanies(ctx context.Context) ([]company.Entry, error)
}

// APIError is a non-2xx answer from the record service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("kintone returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("kintone returned %d", e.StatusCode)
}

// Client queries the master app of a kintone domain.
type Client struct {
	cfg    config.App
	client *retryablehttp.Client
}

// NewClient builds a client from cfg. httpClient may be nil, in which case
// one is created honouring cfg.Kintone.Proxy.
func NewClient(cfg config.App, httpClient *retryablehttp.Client) (*Client, error) {
	if httpClient == nil {
		var err error
		httpClient, err = whttp.NewClient(cfg.Kintone.Proxy, DEFAULT_RETRY_MAX)
		if err != nil {
			return nil, err
		}
	}
	return &Client{cfg: cfg, client: httpClient}, nil
}

// Query returns the record query used to select the master list: every
// company with a bpo id, by name.
func (c *Client) Query() string {
	m := c.cfg.Master
	return m.BpoIDField + ` != "" order by ` + m.NameField + ` asc`
}

// RecordsURL returns the GET url for the master list.
func (c *Client) RecordsURL() string {
	m := c.cfg.Master
	params := url.Values{}
	params.Set("app", strconv.Itoa(m.AppID))
	params.Set("query", c.Query())
	for i, f := range []string{m.NameField, m.BpoIDField, m.GoogleDriveIDField} {
		params.Set("fields["+strconv.Itoa(i)+"]", f)
	}
	return strings.TrimSuffix(c.cfg.Kintone.BaseURL, "/") + config.DefaultRecordsEndpointPath + "?" + params.Encode()
}

func (c *Client) authHeaders() []whttp.WHTTPHeader {
	k := c.cfg.Kintone
	if k.APIToken != "" {
		return []whttp.WHTTPHeader{{Name: API_TOKEN_HEADER, Value: k.APIToken}}
	}
	if k.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(k.Username + ":" + k.Password))
		return []whttp.WHTTPHeader{{Name: PASSWORD_AUTH_HEADER, Value: cred}}
	}
	return nil
}

// FetchCompanies returns the master list ordered by name. No paging is
// done: the service's default record limit applies.
func (c *Client) FetchCompanies(ctx context.Context) ([]company.Entry, error) {
	utils.Log.Debug("Fetching companies from app ", c.cfg.Master.AppID)

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  "GET",
		URL:     c.RecordsURL(),
		Headers: c.authHeaders(),
	}, c.client)
	if err != nil {
		return nil, fmt.Errorf("could not query app %d: %w", c.cfg.Master.AppID, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: res.StatusCode,
			Code:       gjson.Get(res.BodyString, "code").Str,
			Message:    gjson.Get(res.BodyString, "message").Str,
		}
	}

	return ParseRecords(res.BodyString, c.cfg.Master)
}

// ParseRecords extracts entries from a records.json response body.
func ParseRecords(body string, m config.Master) ([]company.Entry, error) {
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("malformed records response")
	}
	records := gjson.Get(body, "records")
	if !records.Exists() || !records.IsArray() {
		return nil, fmt.Errorf("records response has no records array")
	}

	entries := make([]company.Entry, 0, len(records.Array()))
	records.ForEach(func(_, rec gjson.Result) bool {
		entries = append(entries, company.Entry{
			Name:          rec.Get(m.NameField + ".value").String(),
			BpoID:         rec.Get(m.BpoIDField + ".value").String(),
			GoogleDriveID: rec.Get(m.GoogleDriveIDField + ".value").String(),
		})
		return true
	})
	return entries, nil
}
