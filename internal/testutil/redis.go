//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
)

// SeedRedis loads a JSON seed file into client's database.
// The JSON format is: { "TABLE": { "key": { "field": "value", ... }, ... }, ... }
// Each entry becomes a hash at "TABLE<sep>key"; APP_DB uses ":" and
// STATE_DB uses "|".
func SeedRedis(t *testing.T, client *redis.Client, sep, seedFile string) {
	t.Helper()

	data, err := os.ReadFile(seedFile)
	if err != nil {
		t.Fatalf("reading seed file %s: %v", seedFile, err)
	}

	var tables map[string]map[string]map[string]string
	if err := json.Unmarshal(data, &tables); err != nil {
		t.Fatalf("parsing seed file %s: %v", seedFile, err)
	}

	for table, entries := range tables {
		for key, fields := range entries {
			WriteEntry(t, client, table+sep+key, fields)
		}
	}
}

// WriteEntry writes a single hash. An empty field map creates the key with
// a NULL placeholder field, as SONiC does.
func WriteEntry(t *testing.T, client *redis.Client, key string, fields map[string]string) {
	t.Helper()

	if len(fields) == 0 {
		fields = map[string]string{"NULL": "NULL"}
	}
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := client.HSet(context.Background(), key, args...).Err(); err != nil {
		t.Fatalf("writing %s: %v", key, err)
	}
}
