package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
)

// luaKeySpace bounds the keys so workers contend on the same entries.
const luaKeySpace = 100

var setScript = kvclient.NewScript("return redis.call('set', KEYS[1], ARGV[1])")

func runLuaStress(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		pace := newPacer(env.Settings.RatePerWorker)
		stats := metrics.NewRunStats()

		for i := 0; i < w.Requests; i++ {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			key := fmt.Sprintf("lua_key:%d", i%luaKeySpace)

			start := time.Now()
			if err := conn.RunScript(ctx, setScript, []string{key}, i); err != nil {
				return nil, fmt.Errorf("EVALSHA %s: %w", key, err)
			}
			stats.Observe(time.Since(start))
		}

		stats.Credit(w.Requests)
		return stats, nil
	})
}
