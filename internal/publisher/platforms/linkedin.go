package platforms

import (
	"context"

	"github.com/postflow-social/postflow/internal/pkg/httpclient"
)

const linkedinAPIURL = "https://api.linkedin.com/v2"

// LinkedInAdapter publishes UGC posts for the token's member. Image
// posts reference the image by URL as article media; native asset
// upload is not part of this flow.
type LinkedInAdapter struct {
	BaseURL string
	Client  Doer
}

func NewLinkedInAdapter() *LinkedInAdapter {
	return &LinkedInAdapter{
		BaseURL: linkedinAPIURL,
		Client:  httpclient.Default(),
	}
}

func (a *LinkedInAdapter) Platform() string {
	return "linkedin"
}

func (a *LinkedInAdapter) Publish(ctx context.Context, accessToken, content, imageURL string) (*Result, error) {
	shareContent := map[string]interface{}{
		"shareCommentary": map[string]string{
			"text": content,
		},
		"shareMediaCategory": "NONE",
	}

	if imageURL != "" {
		shareContent["shareMediaCategory"] = "ARTICLE"
		shareContent["media"] = []map[string]interface{}{
			{
				"status":      "READY",
				"originalUrl": imageURL,
			},
		}
	}

	payload := map[string]interface{}{
		"author":         "urn:li:person:me",
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	status, body, err := postJSON(ctx, a.Client, a.BaseURL+"/ugcPosts", payload, map[string]string{
		"Authorization":             "Bearer " + accessToken,
		"X-Restli-Protocol-Version": "2.0.0",
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

	return &Result{
		Platform: a.Platform(),
		RemoteID: responseString(body, "id"),
	}, nil
}
