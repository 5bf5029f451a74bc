package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/netaudit/pkg/compliance"
	"github.com/newtron-network/netaudit/pkg/inventory"
	"github.com/newtron-network/netaudit/pkg/util"
)

// SONiC redis databases
const (
	appDB   = 0 // APP_DB: ROUTE_TABLE written by fpmsyncd
	stateDB = 6 // STATE_DB: BGP_NEIGHBOR_TABLE
)

const (
	bgpEstablished   = "Established"
	defaultVRF       = "default"
	defaultRedisPort = "6379"
)

// RedisSource reads routes and BGP sessions from a SONiC device's redis
// databases. SONiC keeps no OSPF neighbor table, so the OSPF view is always
// empty. By default redis is reached through an SSH tunnel to the device;
// set data redis_direct: "true" to connect to hostname:redis_port instead.
// redis_port (default 6379) applies to both.
type RedisSource struct {
	Timeout time.Duration
}

// Name returns the source name
func (s *RedisSource) Name() string {
	return KindRedis
}

// Collect reads APP_DB and STATE_DB for the host's VRF (data key "vrf")
func (s *RedisSource) Collect(ctx context.Context, h *inventory.Host) (*compliance.ObservedState, error) {
	opts := func(db int) *redis.Options {
		return &redis.Options{
			Addr:        redisAddr(h),
			DB:          db,
			DialTimeout: s.Timeout,
			ReadTimeout: s.Timeout,
		}
	}

	var dialer func(ctx context.Context, network, addr string) (net.Conn, error)
	if h.Get("redis_direct", "false") != "true" {
		t, err := DialTunnel(ctx, h, s.Timeout)
		if err != nil {
			return nil, util.NewCollectError(h.Name, KindRedis, "", fmt.Errorf("%w: %v", util.ErrUnreachable, err))
		}
		defer t.Close()
		dialer = func(ctx context.Context, network, _ string) (net.Conn, error) {
			return t.Dial(ctx, network, tunnelRedisAddr(h))
		}
	}

	appOpts, stateOpts := opts(appDB), opts(stateDB)
	appOpts.Dialer, stateOpts.Dialer = dialer, dialer

	app := redis.NewClient(appOpts)
	defer app.Close()
	st := redis.NewClient(stateOpts)
	defer st.Close()

	if err := app.Ping(ctx).Err(); err != nil {
		return nil, util.NewCollectError(h.Name, KindRedis, "", fmt.Errorf("%w: %v", util.ErrUnreachable, err))
	}

	return ReadRedisState(ctx, app, st, h.Get("vrf", defaultVRF), h.Name)
}

// redisAddr is the direct address of the host's redis
func redisAddr(h *inventory.Host) string {
	return net.JoinHostPort(h.Address(), h.Get("redis_port", defaultRedisPort))
}

// tunnelRedisAddr is redis as seen from the far end of the SSH tunnel
func tunnelRedisAddr(h *inventory.Host) string {
	return net.JoinHostPort("127.0.0.1", h.Get("redis_port", defaultRedisPort))
}

// ReadRedisState builds observed state from open APP_DB and STATE_DB clients
func ReadRedisState(ctx context.Context, app, st *redis.Client, vrf, device string) (*compliance.ObservedState, error) {
	state := &compliance.ObservedState{}
	var errs []error

	routes, err := readRoutes(ctx, app, vrf)
	if err != nil {
		errs = append(errs, util.NewCollectError(device, KindRedis, "routes", err))
	} else {
		state.Routes = routes
	}

	bgp, err := readBGPNeighbors(ctx, st, vrf)
	if err != nil {
		errs = append(errs, util.NewCollectError(device, KindRedis, "bgp", err))
	} else {
		state.BGP = bgp
	}

	return state, errors.Join(errs...)
}

// readRoutes scans APP_DB ROUTE_TABLE. Keys are ROUTE_TABLE:<prefix> in the
// default VRF and ROUTE_TABLE:<vrf>:<prefix> otherwise; ECMP next hops are
// comma-separated in the nexthop field.
func readRoutes(ctx context.Context, c *redis.Client, vrf string) (compliance.RoutingView, error) {
	keys, err := scanKeys(ctx, c, "ROUTE_TABLE:*", 100)
	if err != nil {
		return nil, err
	}

	view := compliance.RoutingView{}
	for _, key := range keys {
		keyVRF, prefix := splitRouteKey(key)
		if keyVRF != vrf {
			continue
		}
		vals, err := c.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		view[prefix] = compliance.RouteEntry{NextHops: util.SplitCommaSeparated(vals["nexthop"])}
	}
	return view, nil
}

func splitRouteKey(key string) (vrf, prefix string) {
	rest := strings.TrimPrefix(key, "ROUTE_TABLE:")
	if strings.HasPrefix(rest, "Vrf") {
		if i := strings.Index(rest, ":"); i > 0 {
			return rest[:i], rest[i+1:]
		}
	}
	return defaultVRF, rest
}

// readBGPNeighbors scans STATE_DB BGP_NEIGHBOR_TABLE. Keys are
// BGP_NEIGHBOR_TABLE|<peer> or BGP_NEIGHBOR_TABLE|<vrf>|<peer>. An
// established session reports its received-prefix count when known.
func readBGPNeighbors(ctx context.Context, c *redis.Client, vrf string) (compliance.BGPView, error) {
	keys, err := scanKeys(ctx, c, "BGP_NEIGHBOR_TABLE|*", 100)
	if err != nil {
		return compliance.BGPView{}, err
	}

	view := compliance.BGPView{Available: true, Sessions: make(map[string]compliance.SessionStatus)}
	for _, key := range keys {
		parts := strings.Split(key, "|")
		var keyVRF, peer string
		switch len(parts) {
		case 2:
			keyVRF, peer = defaultVRF, parts[1]
		case 3:
			keyVRF, peer = parts[1], parts[2]
		default:
			continue
		}
		if keyVRF != vrf {
			continue
		}
		vals, err := c.HGetAll(ctx, key).Result()
		if err != nil {
			return compliance.BGPView{}, fmt.Errorf("reading %s: %w", key, err)
		}
		view.Sessions[peer] = compliance.ParseSessionStatus(sessionStatus(vals))
	}
	return view, nil
}

func sessionStatus(vals map[string]string) string {
	state := vals["state"]
	if state == bgpEstablished {
		if pfx := vals["prefixes_received"]; pfx != "" {
			return pfx
		}
	}
	return state
}

// scanKeys returns all keys matching pattern using cursor-based SCAN
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
