package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// ErrUnavailable means every configured stats mirror failed for a player.
// Callers degrade to a zero reading instead of failing the whole match.
var ErrUnavailable = errors.New("player stats unavailable")

// Fetcher reads the external kill metric for one player.
type Fetcher interface {
	FetchKills(ctx context.Context, uid string) (int, error)
}

// Client talks to the third-party game-stats API. The API is slow, flaky and
// rate-limited, so every request carries a bounded timeout and the client
// falls through a list of mirrors before giving up.
type Client struct {
	http    *http.Client
	redis   *redis.Client
	mirrors []string
	timeout time.Duration
	mock    bool
}

// NewClient builds a stats client from config. With stats.mock enabled the
// client returns deterministic values and never touches the network, which is
// what the demo environment runs with.
func NewClient(redisClient *redis.Client) *Client {
	viper.SetDefault("stats.mirrors", []string{"https://fffinfo.tsunstudio.pw"})
	viper.SetDefault("stats.timeout", 10*time.Second)
	viper.SetDefault("stats.mock", false)

	timeout := viper.GetDuration("stats.timeout")
	return &Client{
		http:    &http.Client{Timeout: timeout},
		redis:   redisClient,
		mirrors: viper.GetStringSlice("stats.mirrors"),
		timeout: timeout,
		mock:    viper.GetBool("stats.mock"),
	}
}

type profileResponse struct {
	AccountProfileInfo struct {
		BrRankPoint int `json:"BrRankPoint"`
	} `json:"AccountProfileInfo"`
}

// FetchKills returns the player's current aggregate kill metric. Results are
// cached in Redis for a few seconds to absorb bursts when a whole lobby is
// snapshotted at once; the TTL must stay far below any match duration or
// end-snapshot reads would see start-snapshot values.
func (c *Client) FetchKills(ctx context.Context, uid string) (int, error) {
	if c.mock {
		return c.mockKills(uid), nil
	}

	cacheKey := fmt.Sprintf("stats:kills:%s", uid)
	if c.redis != nil {
		if v, err := c.redis.Get(ctx, cacheKey).Int(); err == nil {
			return v, nil
		}
	}

	for _, mirror := range c.mirrors {
		kills, err := c.fetchFromMirror(ctx, mirror, uid)
		if err != nil {
			log.Printf("[STATS] Mirror %s failed for UID %s: %v", mirror, uid, err)
			continue
		}

		if c.redis != nil {
			c.redis.Set(ctx, cacheKey, kills, 15*time.Second)
		}
		return kills, nil
	}

	return 0, ErrUnavailable
}

func (c *Client) fetchFromMirror(ctx context.Context, mirror, uid string) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/get?uid=%s", mirror, url.QueryEscape(uid))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("mirror returned status %d", resp.StatusCode)
	}

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return 0, err
	}

	return profile.AccountProfileInfo.BrRankPoint, nil
}

// mockKills derives a stable per-UID baseline so start and end snapshots in
// demo mode produce plausible small deltas.
func (c *Client) mockKills(uid string) int {
	h := fnv.New32a()
	h.Write([]byte(uid))
	base := 1000 + int(h.Sum32()%500)

	// Nudge the value by wall-clock minute so an end snapshot taken after the
	// start snapshot shows a small positive delta.
	return base + int(time.Now().Unix()/60)%5
}
