// Package stakingclient queries an external staking registry for historical
// stake balances. It backs the by-stake verification strategy.
package stakingclient

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/pkg/httpclient"
)

type Config struct {
	BaseURL string            `mapstructure:"base_url"`
	Debug   bool              `mapstructure:"debug"`
	Headers map[string]string `mapstructure:"headers"`
}

type Client struct {
	client *httpclient.Client
}

func New(config Config) (*Client, error) {
	client, err := httpclient.New(config.BaseURL, httpclient.Config{
		Debug:   config.Debug,
		Headers: config.Headers,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create http client")
	}
	return &Client{client: client}, nil
}

type stakeResponse struct {
	Wallet string          `json:"wallet"`
	Stake  uint128.Uint128 `json:"stake"`
}

func (c *Client) StakeAtBlock(ctx context.Context, stakingRef string, wallet string, blockNumber uint64) (uint128.Uint128, error) {
	query := url.Values{}
	query.Set("registry", stakingRef)
	query.Set("wallet", wallet)
	query.Set("block", strconv.FormatUint(blockNumber, 10))
	return c.stake(ctx, query)
}

func (c *Client) StakeAtTime(ctx context.Context, stakingRef string, wallet string, at time.Time) (uint128.Uint128, error) {
	query := url.Values{}
	query.Set("registry", stakingRef)
	query.Set("wallet", wallet)
	query.Set("timestamp", strconv.FormatInt(at.Unix(), 10))
	return c.stake(ctx, query)
}

func (c *Client) stake(ctx context.Context, query url.Values) (uint128.Uint128, error) {
	resp, err := c.client.Get(ctx, "/v1/stakes", httpclient.RequestOptions{
		Query: query,
	})
	if err != nil {
		return uint128.Uint128{}, errors.Wrap(err, "failed to query staking registry")
	}
	if resp.StatusCode() != 200 {
		return uint128.Uint128{}, errors.Errorf("staking registry returned status %d", resp.StatusCode())
	}
	var body stakeResponse
	if err := resp.UnmarshalBody(&body); err != nil {
		return uint128.Uint128{}, errors.Wrap(err, "failed to unmarshal stake response")
	}
	return body.Stake, nil
}
