package httpsrc

import (
	"context"
	"io"
)

// Remote binds a Client to a fixed URL so it can act as a dump source.
type Remote struct {
	client *Client
	url    string
}

// NewRemote returns a Remote that fetches url through client on every Open.
func NewRemote(client *Client, url string) *Remote {
	return &Remote{client: client, url: url}
}

// Open downloads the dump and returns its body. Each call issues a fresh
// request.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	return r.client.Fetch(ctx, r.url)
}
