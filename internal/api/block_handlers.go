package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/world"
	"github.com/annel0/voxel-core/internal/world/block"
)

// BlockResponse описывает занятый блок мира
type BlockResponse struct {
	Position vec.Vec3      `json:"position"`
	ID       block.BlockID `json:"id"`
	Name     string        `json:"name"`
	Color    [3]uint8      `json:"color"`
	Section  vec.Vec3      `json:"section"`
	Index    int           `json:"index"` // Линейный индекс в секции: x + 16*z + 256*y
}

// SetBlockRequest: тело PUT /api/blocks/:x/:y/:z. Блок задаётся по name или id.
type SetBlockRequest struct {
	ID        *block.BlockID `json:"id"`
	Name      string         `json:"name"`
	Color     *[3]uint8      `json:"color"`
	Overwrite bool           `json:"overwrite"`
}

// MutationResponse: результат изменения блока
type MutationResponse struct {
	Position vec.Vec3 `json:"position"`
	Mutation string   `json:"mutation"`
}

// SectionResponse: содержимое секции в порядке линейного индекса
type SectionResponse struct {
	Position        vec.Vec3        `json:"position"`
	NonAirBlockSize int             `json:"non_air_block_size"`
	Blocks          []BlockResponse `json:"blocks"`
}

func newBlockResponse(b world.Block) BlockResponse {
	r, g, bl := b.Color.RGB8()
	return BlockResponse{
		Position: b.WorldCoordinate(),
		ID:       b.ID,
		Name:     b.ID.String(),
		Color:    [3]uint8{r, g, bl},
		Section:  b.Section,
		Index:    world.LocalIndex(b.Local.X, b.Local.Y, b.Local.Z),
	}
}

// parseVec3 читает целые параметры :x/:y/:z
func parseVec3(c *gin.Context) (vec.Vec3, error) {
	var v vec.Vec3
	for _, p := range []struct {
		name string
		dst  *int
	}{{"x", &v.X}, {"y", &v.Y}, {"z", &v.Z}} {
		n, err := strconv.Atoi(c.Param(p.name))
		if err != nil {
			return v, fmt.Errorf("неверная координата %s: %q", p.name, c.Param(p.name))
		}
		*p.dst = n
	}
	return v, nil
}

// handleGetBlock возвращает блок по мировым координатам
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	b, ok := rs.sim.World().GetBlockAtWorld(pos.X, pos.Y, pos.Z)
	if !ok {
		respondError(c, http.StatusNotFound, "Блок отсутствует или чанк не загружен")
		return
	}
	respondOK(c, http.StatusOK, "", newBlockResponse(b))
}

// handlePutBlock ставит или заменяет блок
func (rs *RestServer) handlePutBlock(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	id, err := req.blockID()
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	color := block.DefaultColor(id)
	if req.Color != nil {
		color = block.RGB8(req.Color[0], req.Color[1], req.Color[2])
	}

	mutation, err := rs.sim.World().SetBlockAtWorld(pos.X, pos.Y, pos.Z, id, color, req.Overwrite)
	if errors.Is(err, world.ErrChunkNotLoaded) {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := MutationResponse{Position: pos, Mutation: mutation.String()}
	switch mutation {
	case world.MutationPlaced:
		respondOK(c, http.StatusCreated, "Блок установлен", resp)
	case world.MutationOverwritten:
		respondOK(c, http.StatusOK, "Блок заменён", resp)
	default:
		// Занятый слот без overwrite или координаты вне мира
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: "Блок не изменён", Data: resp})
	}
}

// handleDeleteBlock убирает блок
func (rs *RestServer) handleDeleteBlock(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	mutation, err := rs.sim.World().SetBlockAtWorld(pos.X, pos.Y, pos.Z, block.AirBlockID, block.White, false)
	if errors.Is(err, world.ErrChunkNotLoaded) {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if mutation != world.MutationRemoved {
		respondError(c, http.StatusNotFound, "Блок отсутствует")
		return
	}

	respondOK(c, http.StatusOK, "Блок удалён", MutationResponse{Position: pos, Mutation: mutation.String()})
}

// handleGetSection возвращает блоки секции: x,z задают чанк, y индекс секции в столбце
func (rs *RestServer) handleGetSection(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	blocks, ok := rs.sim.World().SectionBlocks(pos)
	if !ok {
		respondError(c, http.StatusNotFound, "Секция пуста или чанк не загружен")
		return
	}

	resp := SectionResponse{
		Position:        pos,
		NonAirBlockSize: len(blocks),
		Blocks:          make([]BlockResponse, 0, len(blocks)),
	}
	for _, b := range blocks {
		resp.Blocks = append(resp.Blocks, newBlockResponse(b))
	}
	respondOK(c, http.StatusOK, "", resp)
}

// blockID определяет тип блока из запроса. Воздух через PUT не ставится.
func (req SetBlockRequest) blockID() (block.BlockID, error) {
	var id block.BlockID
	switch {
	case req.Name != "":
		found, ok := block.Lookup(req.Name)
		if !ok {
			return 0, fmt.Errorf("неизвестный блок %q", req.Name)
		}
		id = found
	case req.ID != nil:
		if !block.IsValidBlockID(*req.ID) {
			return 0, fmt.Errorf("неизвестный ID блока %d", *req.ID)
		}
		id = *req.ID
	default:
		return 0, errors.New("нужно указать name или id блока")
	}

	if id == block.AirBlockID {
		return 0, errors.New("для удаления блока используйте DELETE")
	}
	return id, nil
}
