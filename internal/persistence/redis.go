package persistence

import "github.com/librescoot/bms-controller/internal/redis"

// redisHashKey is the single Redis hash each blob is stored under, one
// field per blob name.
const redisHashKey = "bms:blobs"

// RedisStore backs the Store interface with a Redis hash, for
// deployments that already run Redis — the teacher's own primary
// persistence choice (see pkg/redis/client.go).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Exists reports whether blob has a stored value.
func (r *RedisStore) Exists(blob Blob) bool {
	return r.client.HExists(redisHashKey, string(blob))
}

// Read copies blob's stored bytes into dst, truncating to len(dst) if the
// stored value is larger, and reports the number of bytes actually copied.
func (r *RedisStore) Read(blob Blob, dst []byte) (int, bool) {
	data, err := r.client.HGetBytes(redisHashKey, string(blob))
	if err != nil {
		return 0, false
	}
	return copy(dst, data), true
}

// Write stores src under blob's field.
func (r *RedisStore) Write(blob Blob, src []byte) bool {
	return r.client.HSet(redisHashKey, string(blob), src) == nil
}
