package testutil

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RandSource returns a seeded random source for randomized tests. Set
// TMPL_SEED to replay a failing run.
func RandSource(t *testing.T) rand.Source {
	var seed int64
	if env := os.Getenv("TMPL_SEED"); env == "" {
		seed = time.Now().UnixNano()
	} else {
		envSeed, err := strconv.ParseInt(env, 10, 64)
		require.NoError(t, err)
		seed = envSeed
	}

	t.Logf("Seed used was: [%v]. To reproduce this test failure, re-run the test with `export TMPL_SEED=%v`", seed, seed)
	return rand.NewSource(seed)
}
