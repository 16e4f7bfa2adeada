package platforms

import (
	"context"
	"net/url"

	"github.com/postflow-social/postflow/internal/pkg/httpclient"
)

// InstagramAdapter publishes through the Instagram content publishing
// API: create a media container, then publish it. Instagram requires
// an image; text-only posts are rejected before any network call.
type InstagramAdapter struct {
	BaseURL string
	Client  Doer
}

func NewInstagramAdapter() *InstagramAdapter {
	return &InstagramAdapter{
		BaseURL: facebookGraphURL,
		Client:  httpclient.Default(),
	}
}

func (a *InstagramAdapter) Platform() string {
	return "instagram"
}

func (a *InstagramAdapter) Publish(ctx context.Context, accessToken, content, imageURL string) (*Result, error) {
	if imageURL == "" {
		return nil, &PublishError{
			Platform: a.Platform(),
			Message:  "instagram requires an image",
		}
	}

	// Step 1: media container
	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("image_url", imageURL)
	form.Set("caption", content)

	status, body, err := postForm(ctx, a.Client, a.BaseURL+"/me/media", form)
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

	containerID := responseString(body, "id")
	if containerID == "" {
		return nil, &PublishError{
			Platform: a.Platform(),
			Message:  "media container id missing from response",
		}
	}

	// Step 2: publish the container
	form = url.Values{}
	form.Set("access_token", accessToken)
	form.Set("creation_id", containerID)

	status, body, err = postForm(ctx, a.Client, a.BaseURL+"/me/media_publish", form)
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
