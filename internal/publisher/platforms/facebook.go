package platforms

import (
	"context"
	"net/url"

	"github.com/postflow-social/postflow/internal/pkg/httpclient"
)

const facebookGraphURL = "https://graph.facebook.com/v19.0"

// FacebookAdapter publishes to a Facebook page feed through the Graph
// API. Posts with an image go through the photos edge, plain text
// through the feed edge.
type FacebookAdapter struct {
	BaseURL string
	Client  Doer
}

func NewFacebookAdapter() *FacebookAdapter {
	return &FacebookAdapter{
		BaseURL: facebookGraphURL,
		Client:  httpclient.Default(),
	}
}

func (a *FacebookAdapter) Platform() string {
	return "facebook"
}

func (a *FacebookAdapter) Publish(ctx context.Context, accessToken, content, imageURL string) (*Result, error) {
	form := url.Values{}
	form.Set("access_token", accessToken)

	endpoint := a.BaseURL + "/me/feed"
	form.Set("message", content)
	if imageURL != "" {
		endpoint = a.BaseURL + "/me/photos"
		form.Set("url", imageURL)
		form.Set("caption", content)
		form.Del("message")
	}

	status, body, err := postForm(ctx, a.Client, endpoint, form)
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
