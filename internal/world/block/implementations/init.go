package implementations

import "github.com/annel0/voxel-core/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	block.Register(block.AirBlockID, &AirBehavior{})
	block.Register(block.GrassBlockID, &GrassBehavior{})
	block.Register(block.StoneBlockID, &StoneBehavior{})
	block.Register(block.BedrockBlockID, &BedrockBehavior{})
}
