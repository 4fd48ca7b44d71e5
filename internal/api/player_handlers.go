package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/annel0/voxel-core/internal/game"
	"github.com/annel0/voxel-core/internal/vec"
)

// SpawnRequest: тело POST /api/players
type SpawnRequest struct {
	ID   string `json:"id"` // Необязательный UUID; сохранённая позиция ищется по нему
	Name string `json:"name" binding:"required"`
}

// InputRequest: тело PUT /api/players/:id/input. Незаданные поля не меняются.
type InputRequest struct {
	Walk   *vec.Vec3Float `json:"walk"` // Скорость по X/Z в блоках в секунду
	Jump   bool           `json:"jump"`
	Flying *bool          `json:"flying"`
}

// handleGetPlayers возвращает снимки всех игроков
func (rs *RestServer) handleGetPlayers(c *gin.Context) {
	players := rs.sim.Players()
	respondOK(c, http.StatusOK, "", gin.H{
		"count":   len(players),
		"players": players,
	})
}

// handleSpawnPlayer добавляет игрока в мир
func (rs *RestServer) handleSpawnPlayer(c *gin.Context) {
	var req SpawnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	id := uuid.Nil
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Неверный UUID игрока")
			return
		}
		if _, exists := rs.sim.Player(parsed); exists {
			respondError(c, http.StatusConflict, "Игрок уже в мире")
			return
		}
		id = parsed
	}

	state, err := rs.sim.SpawnPlayer(c.Request.Context(), id, req.Name)
	if err != nil {
		rs.log.Error("❌ Ошибка появления игрока %s: %v", req.Name, err)
		respondError(c, http.StatusInternalServerError, "Не удалось добавить игрока")
		return
	}
	respondOK(c, http.StatusCreated, "Игрок добавлен", state)
}

// handleGetPlayer возвращает снимок одного игрока
func (rs *RestServer) handleGetPlayer(c *gin.Context) {
	id, ok := parsePlayerID(c)
	if !ok {
		return
	}

	state, exists := rs.sim.Player(id)
	if !exists {
		respondError(c, http.StatusNotFound, "Игрок не найден")
		return
	}
	respondOK(c, http.StatusOK, "", state)
}

// handleRemovePlayer убирает игрока, сохраняя его позицию
func (rs *RestServer) handleRemovePlayer(c *gin.Context) {
	id, ok := parsePlayerID(c)
	if !ok {
		return
	}

	if err := rs.sim.RemovePlayer(c.Request.Context(), id); err != nil {
		rs.respondPlayerError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Игрок удалён", nil)
}

// handlePlayerInput применяет ввод игрока к следующему тику
func (rs *RestServer) handlePlayerInput(c *gin.Context) {
	id, ok := parsePlayerID(c)
	if !ok {
		return
	}

	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	if req.Flying != nil {
		if err := rs.sim.SetFlying(id, *req.Flying); err != nil {
			rs.respondPlayerError(c, err)
			return
		}
	}
	if req.Walk != nil {
		if err := rs.sim.SetWalk(id, *req.Walk); err != nil {
			rs.respondPlayerError(c, err)
			return
		}
	}

	jumped := false
	if req.Jump {
		var err error
		if jumped, err = rs.sim.Jump(id); err != nil {
			rs.respondPlayerError(c, err)
			return
		}
	}

	state, _ := rs.sim.Player(id)
	respondOK(c, http.StatusOK, "", gin.H{
		"jumped": jumped,
		"player": state,
	})
}

func parsePlayerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Неверный UUID игрока")
		return uuid.Nil, false
	}
	return id, true
}

func (rs *RestServer) respondPlayerError(c *gin.Context, err error) {
	if errors.Is(err, game.ErrPlayerNotFound) {
		respondError(c, http.StatusNotFound, "Игрок не найден")
		return
	}
	rs.log.Error("❌ %v", err)
	respondError(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
}
