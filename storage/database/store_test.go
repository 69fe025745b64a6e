package database

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kodi/core"
	logsvc "github.com/trezcool/kodi/services/logger"
	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := logsvc.NewConsoleLogger(io.Discard, slog.LevelDebug, false)

	tests := []struct {
		name      string
		seed      bool
		wantEmpty bool
	}{
		{name: "empty", seed: false, wantEmpty: true},
		{name: "demo data", seed: true, wantEmpty: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := core.NewTestConfig()
			conf.SeedMockData = tt.seed

			store, closer, err := OpenStore(ctx, conf, logger)
			require.NoError(t, err)
			defer closer()

			assert.Equal(t, tt.wantEmpty, isEmpty(store))
			if !tt.wantEmpty {
				assert.Equal(t, 5, store.Counts()[inmemdb.KindTenant])
			}
		})
	}
}
