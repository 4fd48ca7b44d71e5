package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-core/internal/entity"
	"github.com/annel0/voxel-core/internal/game"
	"github.com/annel0/voxel-core/internal/metrics"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
)

// testEnv поднимает сервер над плоским чанком (0,0) с полом до высоты 4
type testEnv struct {
	sim     *game.Simulation
	server  *RestServer
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	m := world.NewChunkMap()
	c := world.NewChunk(vec.Vec2{})
	c.PutSection(world.NewFlatSection(c.SectionPosition(0), c.WorldPosition, 4, block.StoneBlockID))
	m.AddChunk(c)

	sim := game.New(game.Options{
		World:     m,
		Generator: world.NewGenerator(1),
		Spawn:     vec.Vec3Float{X: 8.5, Z: 8.5},
	})

	server, err := NewRestServer(Config{Simulation: sim, Metrics: metrics.NewExporter()})
	require.NoError(t, err)
	return &testEnv{sim: sim, server: server, handler: server.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp GenericResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// decodeData перекладывает поле Data ответа в типизированную структуру
func decodeData(t *testing.T, resp GenericResponse, dst interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, dst))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"), "Каждый ответ несёт trace-id")
}

func TestGetBlock(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/blocks/1/3/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var b BlockResponse
	decodeData(t, resp, &b)
	assert.Equal(t, vec.Vec3{X: 1, Y: 3, Z: 2}, b.Position)
	assert.Equal(t, block.StoneBlockID, b.ID)
	assert.Equal(t, 1+16*2+256*3, b.Index)

	rec, _ = env.do(t, http.MethodGet, "/api/blocks/1/10/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "Воздух не возвращается")

	rec, _ = env.do(t, http.MethodGet, "/api/blocks/a/1/2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutAndDeleteBlock(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPut, "/api/blocks/5/10/5", SetBlockRequest{Name: "grass", Color: &[3]uint8{1, 2, 3}})
	require.Equal(t, http.StatusCreated, rec.Code)
	var mutation MutationResponse
	decodeData(t, resp, &mutation)
	assert.Equal(t, "placed", mutation.Mutation)

	rec, resp = env.do(t, http.MethodGet, "/api/blocks/5/10/5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var b BlockResponse
	decodeData(t, resp, &b)
	assert.Equal(t, [3]uint8{1, 2, 3}, b.Color)

	stone := block.StoneBlockID
	rec, _ = env.do(t, http.MethodPut, "/api/blocks/5/10/5", SetBlockRequest{ID: &stone})
	assert.Equal(t, http.StatusConflict, rec.Code, "Занятый слот без overwrite не меняется")

	rec, _ = env.do(t, http.MethodPut, "/api/blocks/5/10/5", SetBlockRequest{ID: &stone, Overwrite: true})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/blocks/5/10/5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/blocks/5/10/5", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "Повторное удаление: блока уже нет")
}

func TestPutBlockValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPut, "/api/blocks/5/10/5", SetBlockRequest{Name: "unobtainium"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/blocks/5/10/5", SetBlockRequest{Name: "air"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Воздух ставится только через DELETE")

	rec, _ = env.do(t, http.MethodPut, "/api/blocks/5/10/5", SetBlockRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/blocks/100/10/5", SetBlockRequest{Name: "stone"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "Чанк (6,0) не загружен")
}

func TestGetSection(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/sections/0/0/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var s SectionResponse
	decodeData(t, resp, &s)
	assert.Equal(t, 4*16*16, s.NonAirBlockSize)
	require.Len(t, s.Blocks, s.NonAirBlockSize)
	for i := 1; i < len(s.Blocks); i++ {
		assert.Less(t, s.Blocks[i-1].Index, s.Blocks[i].Index, "Блоки идут по возрастанию индекса")
	}

	rec, _ = env.do(t, http.MethodGet, "/api/sections/0/1/0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "Пустая секция не выделена")
}

func TestPlayersLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/players", SpawnRequest{Name: "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var state entity.PlayerState
	decodeData(t, resp, &state)
	assert.Equal(t, 4.0, state.Position.Y)

	rec, _ = env.do(t, http.MethodPost, "/api/players", SpawnRequest{ID: state.ID.String(), Name: "alice"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	walk := vec.Vec3Float{X: 2}
	rec, _ = env.do(t, http.MethodPut, "/api/players/"+state.ID.String()+"/input", InputRequest{Walk: &walk, Jump: true})
	require.Equal(t, http.StatusOK, rec.Code)

	env.sim.Step(0.05)

	rec, resp = env.do(t, http.MethodGet, "/api/players", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count   int                  `json:"count"`
		Players []entity.PlayerState `json:"players"`
	}
	decodeData(t, resp, &list)
	require.Equal(t, 1, list.Count)
	assert.Greater(t, list.Players[0].Position.X, 8.5)
	assert.Greater(t, list.Players[0].Position.Y, 4.0, "Игрок в прыжке")

	rec, _ = env.do(t, http.MethodDelete, "/api/players/"+state.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/players/"+state.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/players/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.sim.Step(0.05)

	rec, resp := env.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		World   game.Stats   `json:"world"`
		Process ProcessStats `json:"process"`
	}
	decodeData(t, resp, &stats)
	assert.Equal(t, uint64(1), stats.World.Tick)
	assert.Equal(t, 1, stats.World.LoadedChunks)
	assert.Positive(t, stats.Process.Goroutines)
}

func TestUptimeFormat(t *testing.T) {
	sm := NewServerMetrics()
	assert.Equal(t, "0с", sm.GetUptime())
}
