// Package redis implements db.Store over rueidis for Redis 8+ and Valkey with valkey-search.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragchat/internal/db"
)

var _ db.Store = (*Store)(nil)

// Flavor selects server-specific behavior.
type Flavor int

const (
	// FlavorRedis targets Redis 8+ with the query engine.
	FlavorRedis Flavor = iota
	// FlavorValkey targets Valkey with valkey-search, which rejects bare "*" queries.
	FlavorValkey
)

// ParseFlavor maps a driver name ("redis", "valkey") to a Flavor.
func ParseFlavor(driver string) (Flavor, error) {
	switch strings.ToLower(driver) {
	case "redis":
		return FlavorRedis, nil
	case "valkey":
		return FlavorValkey, nil
	default:
		return 0, fmt.Errorf("unknown redis flavor %q", driver)
	}
}

// Config holds connection parameters for a store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Flavor   Flavor
}

// Store implements db.Store via rueidis.
type Store struct {
	client rueidis.Client
	flavor Flavor
}

// NewStore connects to the first reachable address in cfg.Addrs.
// Client-side caching is off and replies use RESP2, which the FT.SEARCH parsers expect.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client, flavor: cfg.Flavor}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() { s.client.Close() }

// Readiness polling backoff bounds.
const (
	readyMinBackoff = 100 * time.Millisecond
	readyMaxBackoff = 2 * time.Second
)

// WaitForReady pings until the server answers, doubling the pause between attempts.
// On timeout the last ping error is included.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := readyMinBackoff
	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, errors.Join(ctx.Err(), err))
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, readyMaxBackoff)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder { return s.client.B() }

// isRedisErr reports whether err is a server reply containing substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
