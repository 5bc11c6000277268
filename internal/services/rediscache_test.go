package services

import (
	"context"
	"fmt"
	"path"
	"sync"
	"testing"
	"time"

	"parcel-backend/internal/cache"

	"github.com/redis/go-redis/v9"
)

// memRedis answers the commands the report cache issues from an in-process
// keyspace. It is installed as a go-redis hook, so no connection is dialled.
type memRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memRedis) DialHook(next redis.DialHook) redis.DialHook { return next }

func (m *memRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		args := cmd.Args()

		switch c := cmd.(type) {
		case *redis.StringCmd:
			v, ok := m.data[fmt.Sprint(args[1])]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		case *redis.StatusCmd:
			if cmd.Name() == "set" {
				switch v := args[2].(type) {
				case []byte:
					m.data[fmt.Sprint(args[1])] = string(v)
				default:
					m.data[fmt.Sprint(args[1])] = fmt.Sprint(v)
				}
			}
			c.SetVal("OK")
		case *redis.ScanCmd:
			pattern := "*"
			for i := 2; i+1 < len(args); i += 2 {
				if args[i] == "match" {
					pattern = fmt.Sprint(args[i+1])
				}
			}
			var keys []string
			for k := range m.data {
				if ok, _ := path.Match(pattern, k); ok {
					keys = append(keys, k)
				}
			}
			c.SetVal(keys, 0)
		case *redis.IntCmd:
			var n int64
			for _, a := range args[1:] {
				if _, ok := m.data[fmt.Sprint(a)]; ok {
					delete(m.data, fmt.Sprint(a))
					n++
				}
			}
			c.SetVal(n)
		default:
			return fmt.Errorf("memRedis: unsupported command %s", cmd.Name())
		}
		return nil
	}
}

func (m *memRedis) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// withReportCache installs an in-process Redis for the test and turns report
// caching on.
func withReportCache(t *testing.T, f *fixture) *memRedis {
	t.Helper()
	fake := &memRedis{data: make(map[string]string)}
	client := redis.NewClient(&redis.Options{Addr: "cache.invalid:6379"})
	client.AddHook(fake)
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		client.Close()
	})
	f.reports.CacheTTL = time.Minute
	return fake
}
