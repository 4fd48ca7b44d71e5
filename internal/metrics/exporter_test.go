package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-core/internal/physics"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
)

func TestExporterMutations(t *testing.T) {
	e := NewExporter()

	m := world.NewChunkMap()
	m.AddChunk(world.NewChunk(vec.Vec2{}))
	m.OnBlockChanged(e.BlockListener())

	_, err := m.SetBlockAtWorld(0, 0, 0, block.StoneBlockID, block.StoneColor, false)
	require.NoError(t, err)
	_, err = m.SetBlockAtWorld(0, 0, 0, block.GrassBlockID, block.GrassColor, true)
	require.NoError(t, err)
	_, err = m.SetBlockAtWorld(0, 0, 0, block.AirBlockID, block.White, false)
	require.NoError(t, err)
	_, err = m.SetBlockAtWorld(0, 0, 0, block.AirBlockID, block.White, false)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.mutations.WithLabelValues("placed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.mutations.WithLabelValues("overwritten")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.mutations.WithLabelValues("removed")))

	e.ObserveMutation(world.MutationNone)
	assert.Equal(t, 3, testutil.CollectAndCount(e.mutations), "Ветка none не попадает в метрики")
}

func TestExporterResolutions(t *testing.T) {
	e := NewExporter()
	e.ObserveResolutions(physics.Result{Applied: []physics.Resolution{
		physics.ResolutionFloor, physics.ResolutionWallPositive, physics.ResolutionFloor,
	}})

	assert.Equal(t, 2.0, testutil.ToFloat64(e.resolutions.WithLabelValues("floor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.resolutions.WithLabelValues("wall_positive")))
}

func TestExporterHandler(t *testing.T) {
	e := NewExporter()
	e.SetPlayers(3)
	e.SetLoadedChunks(9)
	e.AddSavedSections(2)
	e.ObserveTick(2 * time.Millisecond)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "voxel_players_online 3"), "Должно быть число игроков")
	assert.True(t, strings.Contains(body, "voxel_chunks_loaded 9"))
	assert.True(t, strings.Contains(body, "voxel_sections_saved_total 2"))
	assert.True(t, strings.Contains(body, "voxel_tick_duration_seconds_count 1"))
	assert.True(t, strings.Contains(body, "go_goroutines"), "Метрики рантайма тоже экспортируются")
}
