// Package optimization fetches recommended Cloudflare edge IPs per network
// line from the hostmonit service.
package optimization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"

	"github.com/lite-lake/infra-cfdns/internal/constants"
	"github.com/lite-lake/infra-cfdns/internal/domain"
	"github.com/lite-lake/infra-cfdns/internal/domain/contract"
	"github.com/lite-lake/infra-cfdns/internal/domain/entity"
	"github.com/lite-lake/infra-cfdns/internal/infrastructure/logger"
)

const maxResponseSize = 4 << 20

type Client struct {
	httpClient *http.Client
	url        string
	key        string
}

var _ contract.CandidateSource = (*Client)(nil)

type Option func(*Client)

func WithURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithKey overrides the access key; an empty key keeps the default.
func WithKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.key = key
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewClient(opts ...Option) *Client {
	hc := cleanhttp.DefaultClient()
	hc.Timeout = constants.DefaultRequestTimeout
	c := &Client{
		httpClient: hc,
		url:        constants.HostmonitURL,
		key:        constants.DefaultHostmonitKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

// FetchCandidates issues one request for version. Lines missing from the
// answer have no candidates; unknown line keys are ignored. Every failure
// wraps domain.ErrRecommendationUnavailable.
func (c *Client) FetchCandidates(ctx context.Context, version entity.IPVersion) (entity.Candidates, error) {
	if _, err := entity.ParseIPVersion(string(version)); err != nil {
		return nil, err
	}
	return logger.TimedResult(ctx, "hostmonit.get_optimization_ip", func() (entity.Candidates, error) {
		body, err := c.post(ctx, version)
		if err != nil {
			return nil, domain.NewOpError("fetch optimization ip", err)
		}
		candidates, err := parseCandidates(ctx, body, version)
		if err != nil {
			return nil, domain.NewOpError("parse optimization ip", err)
		}
		return candidates, nil
	})
}

func (c *Client) post(ctx context.Context, version entity.IPVersion) ([]byte, error) {
	payload, err := json.Marshal(request{Key: c.key, Type: string(version)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRecommendationUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrRecommendationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRecommendationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrRecommendationUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrRecommendationUnavailable, err)
	}
	return body, nil
}

// parseCandidates keeps every known line present in info, even when none of
// its entries is an address of version.
func parseCandidates(ctx context.Context, body []byte, version entity.IPVersion) (entity.Candidates, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed response body", domain.ErrRecommendationUnavailable)
	}
	info := gjson.GetBytes(body, "info")
	if !info.IsObject() {
		return nil, fmt.Errorf("%w: response has no info object", domain.ErrRecommendationUnavailable)
	}

	log := logger.FromContext(ctx)
	candidates := make(entity.Candidates)
	info.ForEach(func(key, value gjson.Result) bool {
		line, err := entity.ParseLineToken(key.String())
		if err != nil {
			log.Debug("ignored unknown line in recommendation", "line", key.String())
			return true
		}
		if !value.IsArray() {
			log.Warn("ignored malformed line entry in recommendation", "line", key.String())
			return true
		}
		if _, ok := candidates[line]; !ok {
			candidates[line] = []entity.CandidateIP{}
		}
		for _, item := range value.Array() {
			ip := item.Get("ip").String()
			if !matchesVersion(ip, version) {
				log.Warn("ignored candidate ip", "line", line, "ip", ip, "ip_version", version)
				continue
			}
			candidates[line] = append(candidates[line], entity.CandidateIP{
				IP:      ip,
				Line:    line,
				Colo:    item.Get("colo").String(),
				Latency: firstNumber(item, "delay", "latency"),
				Loss:    item.Get("loss").Float(),
				Speed:   item.Get("speed").Float(),
			})
		}
		return true
	})
	return candidates, nil
}

// matchesVersion reports whether s is an address literal of version.
func matchesVersion(s string, version entity.IPVersion) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return (ip.To4() != nil) == (version == entity.IPVersion4)
}

// firstNumber returns the first of paths present on item. gjson reads
// numeric strings as numbers.
func firstNumber(item gjson.Result, paths ...string) float64 {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() {
			return v.Float()
		}
	}
	return 0
}
