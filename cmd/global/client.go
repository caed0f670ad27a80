package global

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/markusressel/fancond/internal/api"
	"github.com/markusressel/fancond/internal/configuration"
)

const clientTimeout = 10 * time.Minute

// Client talks to the REST api of a running daemon
type Client struct {
	BaseUrl string
	http    *http.Client
}

func NewClient(baseUrl string) *Client {
	return &Client{
		BaseUrl: baseUrl,
		http:    &http.Client{Timeout: clientTimeout},
	}
}

// NewConfiguredClient creates a client for the api configured in the config file
func NewConfiguredClient() (*Client, error) {
	config := configuration.CurrentConfig.Api
	if !config.Enabled {
		return nil, fmt.Errorf("the api is disabled, enable it in the config to control a running daemon")
	}
	host := config.Host
	if len(host) <= 0 || host == "0.0.0.0" {
		host = "localhost"
	}
	return NewClient(fmt.Sprintf("http://%s:%d", host, config.Port)), nil
}

func (c *Client) Get(path string, result interface{}) error {
	return c.do(http.MethodGet, path, result)
}

func (c *Client) Post(path string, result interface{}) error {
	return c.do(http.MethodPost, path, result)
}

func (c *Client) do(method string, path string, result interface{}) error {
	req, err := http.NewRequest(method, c.BaseUrl+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to reach daemon at %s: %w", c.BaseUrl, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.Result
		if json.Unmarshal(body, &apiErr) == nil && len(apiErr.Message) > 0 {
			return fmt.Errorf("%s: %s", apiErr.Name, apiErr.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if result == nil || len(body) <= 0 {
		return nil
	}
	return json.Unmarshal(body, result)
}
