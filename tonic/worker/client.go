package worker

import (
	"github.com/gogs/go-gogs-client"
)

// Client is an authenticated gogs client for a GIN server together with the
// name of the user it acts as.
type Client struct {
	*gogs.Client
	UserName string
	Host     string
}

// NewClient returns a client for the GIN server at host using the given
// access token.
func NewClient(host, username, token string) *Client {
	return &Client{
		Client:   gogs.NewClient(host, token),
		UserName: username,
		Host:     host,
	}
}
