package whttp

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/kselect/internal/utils"
)

const USER_AGENT = "kselect/1.0"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
}

type WHTTPRes struct {
	StatusCode int
	BodyString string
}

// NewClient returns a retrying client. Requests that fail with a
// connection error, a 429 or a 5xx are retried up to retryMax times.
func NewClient(proxy string, retryMax int) (*retryablehttp.Client, error) {
	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = retryMax
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			utils.Log.Debugf("Retrying %s %s (attempt %d)", req.Method, req.URL.Path, attempt)
		}
	}

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		client.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	return client, nil
}

func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	if client == nil {
		client = retryablehttp.NewClient()
		client.Logger = log.New(io.Discard, "", 0)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, nil)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(req.Host, ":80") {
		req.Host = strings.TrimSuffix(req.Host, ":80")
	} else if strings.HasSuffix(req.Host, ":443") {
		req.Host = strings.TrimSuffix(req.Host, ":443")
	}

	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept", "application/json")

	for _, h := range wReq.Headers {
		req.Header.Add(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}, nil
}
