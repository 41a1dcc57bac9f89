// Package catalog fetches playlist contents from the QQ Music web endpoint.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"recobot/internal/metrics"
	"recobot/internal/reco"
	logx "recobot/pkg/logx"
)

const (
	DefaultBaseURL = "https://c.y.qq.com/qzone/fcg-bin/fcg_ucc_getcdinfo_byids_cp.fcg"
	SongURLPrefix  = "https://y.qq.com/n/ryqq/songDetail/"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSec bounds outgoing requests. 0 disables limiting.
	RatePerSec int
}

// Client implements reco.Catalog.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	log     logx.Logger
}

// New builds a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client, log logx.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{http: httpClient, baseURL: cfg.BaseURL, log: log}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return c
}

type playlistResponse struct {
	Code   int `json:"code"`
	CDList []struct {
		DissName string `json:"dissname"`
		SongList []song `json:"songlist"`
	} `json:"cdlist"`
}

type song struct {
	SongName string `json:"songname"`
	SongMID  string `json:"songmid"`
	Singer   []struct {
		Name string `json:"name"`
	} `json:"singer"`
}

// Fetch returns the songs of playlist id. Every failure wraps
// reco.ErrSourceFetch, including an empty playlist.
func (c *Client) Fetch(ctx context.Context, id string) (items []reco.Item, err error) {
	start := time.Now()
	defer func() {
		metrics.CatalogRequests.WithLabelValues(metrics.Status(err)).Inc()
		metrics.Since(metrics.CatalogDuration, start)
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", reco.ErrSourceFetch, id, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", reco.ErrSourceFetch, id, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://y.qq.com/")
	req.Header.Set("Accept", "application/json,text/plain,*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", reco.ErrSourceFetch, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: http %d", reco.ErrSourceFetch, id, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", reco.ErrSourceFetch, id, err)
	}

	var pr playlistResponse
	if err := json.Unmarshal(unwrapJSONP(body), &pr); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %w", reco.ErrSourceFetch, id, err)
	}
	if len(pr.CDList) == 0 {
		return nil, fmt.Errorf("%w: %s: no playlist in response (code %d)", reco.ErrSourceFetch, id, pr.Code)
	}

	songs := pr.CDList[0].SongList
	items = make([]reco.Item, 0, len(songs))
	for _, s := range songs {
		if s.SongMID == "" || s.SongName == "" {
			continue
		}
		it := reco.Item{SourceID: id, Title: s.SongName, ExternalRef: SongURLPrefix + s.SongMID}
		for _, sg := range s.Singer {
			if sg.Name != "" {
				it.Artists = append(it.Artists, sg.Name)
			}
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s: playlist is empty", reco.ErrSourceFetch, id)
	}
	c.log.Debug("playlist fetched",
		logx.String("id", id),
		logx.String("name", pr.CDList[0].DissName),
		logx.Int("songs", len(items)),
		logx.Duration("took", time.Since(start)),
	)
	return items, nil
}

func (c *Client) requestURL(id string) string {
	q := url.Values{}
	q.Set("type", "1")
	q.Set("json", "1")
	q.Set("utf8", "1")
	q.Set("disstid", id)
	q.Set("format", "json")
	q.Set("g_tk", "5381")
	q.Set("platform", "yqq")
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + q.Encode()
}

// unwrapJSONP strips a "callback(...)" wrapper the endpoint sometimes adds.
func unwrapJSONP(b []byte) []byte {
	s := strings.TrimSpace(string(b))
	if s == "" || s[0] == '{' {
		return []byte(s)
	}
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end <= open {
		return []byte(s)
	}
	return []byte(s[open+1 : end])
}
