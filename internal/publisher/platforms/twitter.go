package platforms

import (
	"context"

	"github.com/postflow-social/postflow/internal/pkg/httpclient"
)

const twitterAPIURL = "https://api.twitter.com/2"

// TwitterAdapter posts tweets through the v2 API. Media upload is a
// separate multi-step flow; image URLs are appended to the tweet text.
type TwitterAdapter struct {
	BaseURL string
	Client  Doer
}

func NewTwitterAdapter() *TwitterAdapter {
	return &TwitterAdapter{
		BaseURL: twitterAPIURL,
		Client:  httpclient.Default(),
	}
}

func (a *TwitterAdapter) Platform() string {
	return "twitter"
}

func (a *TwitterAdapter) Publish(ctx context.Context, accessToken, content, imageURL string) (*Result, error) {
	text := content
	if imageURL != "" {
		text = content + " " + imageURL
	}

	payload := map[string]interface{}{
		"text": text,
	}

	status, body, err := postJSON(ctx, a.Client, a.BaseURL+"/tweets", payload, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return nil, &PublishError{
			Platform:   a.Platform(),
			StatusCode: status,
			Message:    responseError(body),
		}
	}

	remoteID := ""
	if data, ok := body["data"].(map[string]interface{}); ok {
		if id, ok := data["id"].(string); ok {
			remoteID = id
		}
	}

	return &Result{
		Platform: a.Platform(),
		RemoteID: remoteID,
	}, nil
}
