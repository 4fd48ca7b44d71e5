package entity

import (
	"github.com/google/uuid"

	"github.com/annel0/voxel-core/internal/physics"
	"github.com/annel0/voxel-core/internal/shape"
	"github.com/annel0/voxel-core/internal/vec"
)

// Размеры игрока в блоках
const (
	PlayerWidth  = 0.6
	PlayerHeight = 1.5
)

// Player: управляемый актёр. Позиция задаёт точку между ступнями,
// коробка столкновений растёт от неё вверх.
type Player struct {
	ID   uuid.UUID
	Name string
	Size vec.Vec3Float

	position     vec.Vec3Float
	nextPosition vec.Vec3Float

	flying       bool
	onGround     bool
	jumpState    physics.JumpState
	jumpForce    vec.Vec3Float
	fallDuration float64 // Сколько секунд длится текущее падение
	fallDistance float64 // Сколько блоков пройдено в текущем падении
	stepCooldown float64
}

// NewPlayer создаёт игрока в указанной позиции
func NewPlayer(name string, position vec.Vec3Float) *Player {
	return &Player{
		ID:           uuid.New(),
		Name:         name,
		Size:         vec.Vec3Float{X: PlayerWidth, Y: PlayerHeight, Z: PlayerWidth},
		position:     position,
		nextPosition: position,
	}
}

// Position возвращает текущую позицию
func (p *Player) Position() vec.Vec3Float {
	return p.position
}

// SetPosition ставит игрока в pos без сброса учёта падения
func (p *Player) SetPosition(pos vec.Vec3Float) {
	p.position = pos
	p.nextPosition = pos
}

// NextPosition возвращает позицию, в которую игрок хочет попасть в этом тике
func (p *Player) NextPosition() vec.Vec3Float {
	return p.nextPosition
}

// SetNextPosition устанавливает желаемую позицию
func (p *Player) SetNextPosition(pos vec.Vec3Float) {
	p.nextPosition = pos
}

// Move сдвигает желаемую позицию на delta
func (p *Player) Move(delta vec.Vec3Float) {
	p.nextPosition = p.nextPosition.Add(delta)
}

// Teleport переносит игрока без проверки столкновений
func (p *Player) Teleport(pos vec.Vec3Float) {
	p.position = pos
	p.nextPosition = pos
	p.fallDuration = 0
	p.fallDistance = 0
}

// Commit делает желаемую позицию текущей
func (p *Player) Commit() {
	p.position = p.nextPosition
}

// BoundingBox возвращает коробку столкновений в текущей позиции
func (p *Player) BoundingBox() shape.AABB {
	return p.BoundingBoxAt(p.position)
}

// BoundingBoxAt возвращает коробку столкновений, если бы игрок стоял в pos
func (p *Player) BoundingBoxAt(pos vec.Vec3Float) shape.AABB {
	return shape.NewAABB(pos.Add(vec.Vec3Float{Y: p.Size.Y / 2}), p.Size)
}

func (p *Player) IsFlying() bool               { return p.flying }
func (p *Player) IsJumping() bool              { return p.jumpState == physics.JumpJumping }
func (p *Player) IsOnGround() bool             { return p.onGround }
func (p *Player) JumpState() physics.JumpState { return p.jumpState }
func (p *Player) StepCooldown() float64        { return p.stepCooldown }
func (p *Player) FallDuration() float64        { return p.fallDuration }
func (p *Player) FallDistance() float64        { return p.fallDistance }
func (p *Player) JumpForce() vec.Vec3Float     { return p.jumpForce }

// SetFlying включает или выключает полёт. В полёте физика не применяется.
func (p *Player) SetFlying(flying bool) {
	p.flying = flying
	if flying {
		p.jumpState = physics.JumpIdle
		p.jumpForce = vec.Vec3Float{}
		p.fallDuration = 0
		p.fallDistance = 0
	}
}

// SetOnGround устанавливает флаг опоры. Приземление сбрасывает учёт падения.
func (p *Player) SetOnGround(onGround bool) {
	p.onGround = onGround
	if onGround {
		p.fallDuration = 0
		p.fallDistance = 0
	}
}

func (p *Player) SetJumpState(state physics.JumpState) { p.jumpState = state }
func (p *Player) SetStepCooldown(seconds float64)      { p.stepCooldown = seconds }
func (p *Player) SetJumpForce(force vec.Vec3Float)     { p.jumpForce = force }

// AccumulateFall учитывает очередной тик падения
func (p *Player) AccumulateFall(dt, distance float64) {
	p.fallDuration += dt
	p.fallDistance += distance
}

// Jump начинает прыжок, если игрок стоит на земле
func (p *Player) Jump(force vec.Vec3Float) bool {
	if p.flying || !p.onGround || p.IsJumping() || force.Y <= 0 {
		return false
	}

	p.jumpForce = force
	p.jumpState = physics.JumpJumping
	p.onGround = false
	return true
}

// Tick обновляет таймеры игрока
func (p *Player) Tick(dt float64) {
	if p.stepCooldown > 0 {
		p.stepCooldown = max(p.stepCooldown-dt, 0)
	}
}

// PlayerState: снимок состояния игрока для API и хранилищ
type PlayerState struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Position  vec.Vec3Float `json:"position"`
	OnGround  bool          `json:"on_ground"`
	Flying    bool          `json:"flying"`
	JumpState string        `json:"jump_state"`
}

// Snapshot возвращает снимок состояния
func (p *Player) Snapshot() PlayerState {
	return PlayerState{
		ID:        p.ID,
		Name:      p.Name,
		Position:  p.position,
		OnGround:  p.onGround,
		Flying:    p.flying,
		JumpState: p.jumpState.String(),
	}
}

var (
	_ physics.Faller = (*Player)(nil)
	_ physics.Jumper = (*Player)(nil)
)
