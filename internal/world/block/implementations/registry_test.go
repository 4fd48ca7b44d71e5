package implementations

import (
	"testing"

	"github.com/annel0/voxel-core/internal/world/block"
	"github.com/stretchr/testify/assert"
)

func TestRegistryContainsBaseBlocks(t *testing.T) {
	for _, id := range []block.BlockID{block.AirBlockID, block.GrassBlockID, block.StoneBlockID, block.BedrockBlockID} {
		behavior, ok := block.Get(id)
		assert.True(t, ok, "Блок %d должен быть зарегистрирован", id)
		assert.Equal(t, id, behavior.ID(), "ID поведения должен совпадать с ключом регистра")
	}

	assert.False(t, block.IsCollidable(block.AirBlockID), "Воздух не участвует в столкновениях")
	assert.True(t, block.IsCollidable(block.StoneBlockID), "Камень участвует в столкновениях")
	assert.Equal(t, block.StoneColor, block.DefaultColor(block.StoneBlockID))
}

func TestLookupByName(t *testing.T) {
	id, ok := block.Lookup("bedrock")
	assert.True(t, ok)
	assert.Equal(t, block.BedrockBlockID, id)

	_, ok = block.Lookup("lava")
	assert.False(t, ok, "Незарегистрированное имя не должно находиться")
}
