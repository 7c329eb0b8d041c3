package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPProvider talks to a JSON video generation API:
//
//	POST {base}/v1/videos       {"prompt": "..."}  -> {"task_id": "..."}
//	GET  {base}/v1/videos/{id}                     -> {"state": "...", "result_url": "...", "fail_msg": "..."}
type HTTPProvider struct {
	base   *url.URL
	apiKey string
	client *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, client *http.Client) (*HTTPProvider, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid video provider url %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPProvider{base: u, apiKey: apiKey, client: client}, nil
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type statusResponse struct {
	State     string `json:"state"`
	ResultURL string `json:"result_url"`
	FailMsg   string `json:"fail_msg"`
}

func (p *HTTPProvider) Submit(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}
	var out submitResponse
	if err := p.do(ctx, http.MethodPost, p.base.JoinPath("v1", "videos").String(), body, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", errors.New("video provider returned no task id")
	}
	return out.TaskID, nil
}

func (p *HTTPProvider) Status(ctx context.Context, providerTaskID string) (ProviderStatus, error) {
	var out statusResponse
	if err := p.do(ctx, http.MethodGet, p.base.JoinPath("v1", "videos", providerTaskID).String(), nil, &out); err != nil {
		return ProviderStatus{}, err
	}
	switch strings.ToLower(out.State) {
	case "success", "succeeded", "completed":
		if out.ResultURL == "" {
			return ProviderStatus{}, errors.New("video provider reported success without a result url")
		}
		return ProviderStatus{State: StateSuccess, ResultURL: out.ResultURL}, nil
	case "fail", "failed", "error":
		return ProviderStatus{State: StateFail, FailMsg: out.FailMsg}, nil
	default:
		return ProviderStatus{State: StateWaiting}, nil
	}
}

func (p *HTTPProvider) do(ctx context.Context, method, target string, body []byte, dst any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("video provider %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("video provider %s: status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst)
}
