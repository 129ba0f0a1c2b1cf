package container

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/stocktake/internal/application/dispatcher"
	"github.com/garyjia/stocktake/internal/application/service"
	"github.com/garyjia/stocktake/internal/domain/counting"
	"github.com/garyjia/stocktake/internal/email"
	"github.com/garyjia/stocktake/internal/infrastructure/persistence/memory"
)

const itemsCSV = "Area,Description,Qty\nBar,Lime,0\nBar,Lemon,2\nCellar,Wine,1\n"

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Store.Driver = "redis"
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_MemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "double start")

	health := c.Health()
	assert.True(t, health.Overall)
	assert.Equal(t, "memory", health.Components["store"].Message)
	assert.Equal(t, "disabled", health.Components["email"].Message)
	assert.Equal(t, "1 area.finished handler(s)", health.Components["dispatcher"].Message)
	assert.Nil(t, c.tx)

	svc := c.Services().Stocktake
	run, err := svc.CreateRun(ctx, "items.csv", []byte(itemsCSV))
	require.NoError(t, err)

	_, err = svc.EmailResults(ctx, run.ID, "ops@example.com")
	assert.ErrorIs(t, err, email.ErrNotConfigured)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "double close")
}

func TestContainer_ExportArchive(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.ExportDir = filepath.Join(t.TempDir(), "exports")

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	svc := c.Services().Stocktake
	run, err := svc.CreateRun(ctx, "items.csv", []byte(itemsCSV))
	require.NoError(t, err)

	file, err := svc.ExportArea(ctx, run.ID, "Cellar")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.ExportDir, "stocktake_cellar_results.csv"), file.ArchivedPath)

	onDisk, err := os.ReadFile(file.ArchivedPath)
	require.NoError(t, err)
	assert.Equal(t, file.Data, onDisk)
}

func TestContainer_SQLiteSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "stocktake.db")

	first, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Start(ctx))

	svc := first.Services().Stocktake
	run, err := svc.CreateRun(ctx, "items.csv", []byte(itemsCSV))
	require.NoError(t, err)

	for _, cmd := range []counting.Command{
		counting.Digit(4),
		counting.Simple(counting.CommandNext),
		counting.Simple(counting.CommandClear),
		counting.Digit(7),
		counting.Simple(counting.CommandNext),
	} {
		_, err := svc.ApplyCommand(ctx, run.ID, "Bar", cmd)
		require.NoError(t, err)
	}
	assert.Equal(t, "sqlite", first.Health().Components["store"].Message)
	require.NotNil(t, first.tx)
	require.NoError(t, first.Close())

	second, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, second.Start(ctx))
	defer second.Close()

	summary, err := second.Services().Stocktake.Summary(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, summary.Areas, 2)
	assert.Equal(t, 11, summary.Areas[0].TotalQuantity)

	file, err := second.Services().Stocktake.ExportAll(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Area,Description,Qty\nBar,Lime,4\nBar,Lemon,7\nCellar,Wine,1\n", string(file.Data))

	require.NoError(t, second.Services().Stocktake.DeleteRun(ctx, run.ID))
	_, err = second.Services().Stocktake.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, service.ErrRunNotFound)
}

func TestContainer_HealthRequiresMergeHandler(t *testing.T) {
	c := &Container{
		config:     DefaultConfig(),
		logger:     zap.NewNop(),
		runs:       memory.NewRunRepository(),
		dispatcher: dispatcher.NewDispatcher(),
	}
	c.ready.Store(true)

	health := c.Health()
	assert.False(t, health.Overall)
	assert.Equal(t, ComponentHealth{Healthy: false, Message: "merge-finished-area not subscribed"},
		health.Components["dispatcher"])
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("run_id", "r1", 42, "skipped", "error", errors.New("boom"), "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "run_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}
