package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Doer is the request seam shared by all adapters. Production code
// passes the pooled client; tests substitute a plain http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

func postJSON(ctx context.Context, client Doer, endpoint string, payload interface{}, headers map[string]string) (int, map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doRequest(client, req)
}

func postForm(ctx context.Context, client Doer, endpoint string, form url.Values) (int, map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return doRequest(client, req)
}

func doRequest(client Doer, req *http.Request) (int, map[string]interface{}, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}

	return resp.StatusCode, decoded, nil
}

func responseString(body map[string]interface{}, key string) string {
	if body == nil {
		return ""
	}
	if s, ok := body[key].(string); ok {
		return s
	}
	return ""
}

func responseError(body map[string]interface{}) string {
	if body == nil {
		return ""
	}
	if errObj, ok := body["error"].(map[string]interface{}); ok {
		if msg, ok := errObj["message"].(string); ok {
			return msg
		}
	}
	if msg, ok := body["message"].(string); ok {
		return msg
	}
	return ""
}
