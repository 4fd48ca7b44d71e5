package implementations

import "github.com/annel0/voxel-core/internal/world/block"

// BedrockBehavior описывает неразрушимое дно мира
type BedrockBehavior struct{}

func (b *BedrockBehavior) ID() block.BlockID {
	return block.BedrockBlockID
}

func (b *BedrockBehavior) Name() string {
	return "Bedrock"
}

func (b *BedrockBehavior) DefaultColor() block.Color {
	return block.BedrockColor
}

func (b *BedrockBehavior) IsCollidable() bool {
	return true
}

func (b *BedrockBehavior) IsTransparent() bool {
	return false
}
