package physics

import (
	"github.com/annel0/voxel-core/internal/shape"
	"github.com/annel0/voxel-core/internal/vec"
)

// JumpState описывает фазу прыжка актёра
type JumpState uint8

const (
	JumpIdle    JumpState = iota // Стоит или идёт
	JumpJumping                  // Набирает высоту
	JumpFalling                  // Падает
)

// String возвращает строковое представление состояния прыжка
func (s JumpState) String() string {
	switch s {
	case JumpIdle:
		return "idle"
	case JumpJumping:
		return "jumping"
	case JumpFalling:
		return "falling"
	default:
		return "unknown"
	}
}

// Collidable: всё, что имеет коробку столкновений
type Collidable interface {
	BoundingBox() shape.AABB
}

// Body: актёр, которого двигает физика.
// Position: где актёр стоит сейчас, NextPosition: куда он хочет попасть в этом тике.
type Body interface {
	Position() vec.Vec3Float
	SetPosition(pos vec.Vec3Float)
	NextPosition() vec.Vec3Float
	SetNextPosition(pos vec.Vec3Float)

	// BoundingBoxAt возвращает коробку актёра, если бы он стоял в pos
	BoundingBoxAt(pos vec.Vec3Float) shape.AABB

	IsFlying() bool
	IsJumping() bool
	IsOnGround() bool
	SetOnGround(onGround bool)

	JumpState() JumpState
	SetJumpState(state JumpState)

	StepCooldown() float64
	SetStepCooldown(seconds float64)
}

// Faller: актёр, на которого действует гравитация
type Faller interface {
	Body
	FallDuration() float64
	AccumulateFall(dt, distance float64)
}

// Jumper: актёр, который умеет прыгать
type Jumper interface {
	Body
	JumpForce() vec.Vec3Float
	SetJumpForce(force vec.Vec3Float)
}
