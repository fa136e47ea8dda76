package embedding

import (
	"fmt"
	"os"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client is a process-wide handle on the OpenAI API. The underlying
// client is built lazily on first use and reused for the lifetime of
// the process.
type Client struct {
	apiKey string

	once   sync.Once
	client *openai.Client
	err    error
}

// NewClient creates the handle without contacting the API. apiKey may
// be empty, in which case OPENAI_API_KEY is read at first use.
func NewClient(apiKey string) *Client {
	return &Client{apiKey: apiKey}
}

// Client returns the shared OpenAI client, initializing it on the
// first call.
func (c *Client) Client() (*openai.Client, error) {
	c.once.Do(func() {
		key := c.apiKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			c.err = fmt.Errorf("OPENAI_API_KEY environment variable not set")
			return
		}
		client := openai.NewClient(option.WithAPIKey(key))
		c.client = &client
	})
	return c.client, c.err
}
