package physics

import (
	"testing"

	"github.com/annel0/voxel-core/internal/shape"
	"github.com/annel0/voxel-core/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBody: актёр 0.5x1.5x0.5 с коробкой, привязанной к ногам
type testBody struct {
	pos, next    vec.Vec3Float
	flying       bool
	onGround     bool
	jumpState    JumpState
	stepCooldown float64
	fallDuration float64
	fallDistance float64
	jumpForce    vec.Vec3Float
}

func (b *testBody) Position() vec.Vec3Float           { return b.pos }
func (b *testBody) SetPosition(pos vec.Vec3Float)     { b.pos, b.next = pos, pos }
func (b *testBody) NextPosition() vec.Vec3Float       { return b.next }
func (b *testBody) SetNextPosition(pos vec.Vec3Float) { b.next = pos }
func (b *testBody) IsFlying() bool                    { return b.flying }
func (b *testBody) IsJumping() bool                   { return b.jumpState == JumpJumping }
func (b *testBody) IsOnGround() bool                  { return b.onGround }
func (b *testBody) SetOnGround(onGround bool)         { b.onGround = onGround }
func (b *testBody) JumpState() JumpState              { return b.jumpState }
func (b *testBody) SetJumpState(state JumpState)      { b.jumpState = state }
func (b *testBody) StepCooldown() float64             { return b.stepCooldown }
func (b *testBody) SetStepCooldown(seconds float64)   { b.stepCooldown = seconds }
func (b *testBody) FallDuration() float64             { return b.fallDuration }
func (b *testBody) JumpForce() vec.Vec3Float          { return b.jumpForce }
func (b *testBody) SetJumpForce(force vec.Vec3Float)  { b.jumpForce = force }

func (b *testBody) AccumulateFall(dt, distance float64) {
	b.fallDuration += dt
	b.fallDistance += distance
}

func (b *testBody) BoundingBoxAt(pos vec.Vec3Float) shape.AABB {
	size := vec.Vec3Float{X: 0.5, Y: 1.5, Z: 0.5}
	return shape.NewAABB(pos.Add(vec.Vec3Float{Y: size.Y / 2}), size)
}

type testBlock struct {
	x, y, z int
}

func (b testBlock) BoundingBox() shape.AABB {
	min := vec.Vec3Float{X: float64(b.x), Y: float64(b.y), Z: float64(b.z)}
	return shape.FromMinMax(min, min.Add(vec.Vec3Float{X: 1, Y: 1, Z: 1}))
}

func blocks(bs ...testBlock) []Collidable {
	result := make([]Collidable, len(bs))
	for i, b := range bs {
		result[i] = b
	}
	return result
}

func newBody(pos, next vec.Vec3Float) *testBody {
	return &testBody{pos: pos, next: next}
}

func noStepEngine() *Engine {
	cfg := DefaultConfig()
	cfg.AutoStep = false
	return NewEngine(cfg)
}

func TestResolveFloor(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1.5, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: 0.75, Z: 0.5})

	result := noStepEngine().Resolve(body, blocks(testBlock{0, 0, 0}))

	assert.True(t, result.Has(ResolutionFloor), "Ожидалось приземление")
	assert.Equal(t, 1.0, body.next.Y, "Актёр должен стоять ровно на верхней грани")
	assert.True(t, body.onGround, "После приземления актёр на земле")
}

func TestResolveCeiling(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 0.25, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: 0.75, Z: 0.5})
	body.onGround = true

	result := noStepEngine().Resolve(body, blocks(testBlock{0, 2, 0}))

	assert.True(t, result.Has(ResolutionCeiling), "Ожидался удар о потолок")
	assert.Equal(t, 0.5, body.next.Y, "Голова должна упереться в нижнюю грань")
	assert.False(t, body.onGround, "Без опоры актёр в воздухе")
}

func TestResolveRestingContact(t *testing.T) {
	pos := vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}
	body := newBody(pos, pos)

	result := noStepEngine().Resolve(body, blocks(testBlock{0, 0, 0}))

	assert.True(t, result.Has(ResolutionRest))
	assert.Equal(t, pos, body.next, "Касание не сдвигает актёра")
	assert.True(t, body.onGround)
}

func TestResolveSwallowedBlockIsLeftToHorizontal(t *testing.T) {
	// Блок целиком в вертикальном срезе актёра, но актёр к нему не движется
	pos := vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}
	body := newBody(pos, pos)
	body.onGround = true

	result := noStepEngine().Resolve(body, blocks(testBlock{0, 1, 0}))

	assert.Empty(t, result.Applied)
	assert.Equal(t, pos, body.next)
	assert.False(t, body.onGround)
}

func TestResolveEmptyAndFlying(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	body := newBody(vec.Vec3Float{Y: 5}, vec.Vec3Float{Y: 4})
	body.onGround = true
	result := engine.Resolve(body, nil)
	assert.Empty(t, result.Applied)
	assert.Equal(t, 4.0, body.next.Y, "Пустой список блоков не меняет позицию")
	assert.True(t, body.onGround, "Пустой список не меняет флаг земли")

	flyer := newBody(vec.Vec3Float{X: 0.5, Y: 1.5, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5})
	flyer.flying = true
	result = engine.Resolve(flyer, blocks(testBlock{0, 0, 0}))
	assert.Empty(t, result.Applied)
	assert.Equal(t, 0.5, flyer.next.Y, "В полёте столкновения не проверяются")
}

func TestResolveWallSlideXDominant(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}, vec.Vec3Float{X: 0.875, Y: 1, Z: 0.625})

	result := noStepEngine().Resolve(body, blocks(testBlock{1, 1, 0}))

	assert.True(t, result.Has(ResolutionWallPositive))
	assert.InDelta(t, 0.74, body.next.X, 1e-9, "X выталкивается на глубину плюс зазор")
	assert.Equal(t, 0.625, body.next.Z, "Движение по Z сохраняется")
	assert.Equal(t, 1.0, body.next.Y)
}

func TestResolveWallSlideZDominant(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}, vec.Vec3Float{X: 0.625, Y: 1, Z: 0.875})

	result := noStepEngine().Resolve(body, blocks(testBlock{0, 1, 1}))

	assert.True(t, result.Has(ResolutionWallPositive))
	assert.InDelta(t, 0.74, body.next.Z, 1e-9, "Z выталкивается на глубину плюс зазор")
	assert.Equal(t, 0.625, body.next.X, "Движение по X сохраняется")
}

func TestResolveWallNegative(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}, vec.Vec3Float{X: 0.125, Y: 1, Z: 0.5})

	result := noStepEngine().Resolve(body, blocks(testBlock{-1, 1, 0}))

	assert.True(t, result.Has(ResolutionWallNegative))
	assert.InDelta(t, 0.26, body.next.X, 1e-9)

	box := body.BoundingBoxAt(body.next)
	assert.False(t, Collides(box, blocks(testBlock{-1, 1, 0})), "После выталкивания пересечения нет")
}

func TestResolveAutoStep(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}, vec.Vec3Float{X: 0.875, Y: 1, Z: 0.5})
	body.onGround = true

	engine := NewEngine(DefaultConfig())
	result := engine.Resolve(body, blocks(testBlock{0, 0, 0}, testBlock{1, 0, 0}, testBlock{1, 1, 0}))

	require.True(t, result.Has(ResolutionStep), "Ожидался автоподъём")
	assert.Equal(t, 2.0, body.next.Y, "Подъём ровно на один блок")
	assert.Equal(t, 0.875, body.next.X, "Горизонтальное движение сохраняется")
	assert.True(t, body.onGround)
	assert.Equal(t, JumpIdle, body.jumpState)
	assert.Equal(t, engine.Config().StepCooldown, body.stepCooldown, "После подъёма включается пауза")
}

func TestResolveAutoStepBlockedAbove(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}, vec.Vec3Float{X: 0.875, Y: 1, Z: 0.5})
	body.onGround = true

	result := NewEngine(DefaultConfig()).Resolve(body, blocks(
		testBlock{0, 0, 0}, testBlock{1, 0, 0}, testBlock{1, 1, 0}, testBlock{1, 2, 0},
	))

	assert.False(t, result.Has(ResolutionStep), "Над препятствием блок, подъём невозможен")
	assert.True(t, result.Has(ResolutionWallPositive))
	assert.Equal(t, 1.0, body.next.Y)
	assert.InDelta(t, 0.74, body.next.X, 1e-9)
	assert.True(t, body.onGround, "Актёр продолжает стоять на полу")
}

func TestResolveAutoStepCooldown(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}, vec.Vec3Float{X: 0.875, Y: 1, Z: 0.5})
	body.onGround = true
	body.stepCooldown = 0.1

	result := NewEngine(DefaultConfig()).Resolve(body, blocks(testBlock{0, 0, 0}, testBlock{1, 1, 0}))

	assert.False(t, result.Has(ResolutionStep), "Во время паузы подъём не срабатывает")
	assert.Equal(t, 1.0, body.next.Y)
	assert.InDelta(t, 0.74, body.next.X, 1e-9)
}

func TestResolveJumpHitsCeiling(t *testing.T) {
	body := newBody(vec.Vec3Float{X: 0.5, Y: 0.25, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: 0.75, Z: 0.5})
	body.jumpState = JumpJumping
	body.jumpForce = vec.Vec3Float{X: 0.3, Y: 0.6}

	result := noStepEngine().Resolve(body, blocks(testBlock{0, 2, 0}))

	assert.True(t, result.Has(ResolutionCeiling), "Ожидался удар головой")
	assert.Equal(t, 0.5, body.next.Y, "Голова упирается в нижнюю грань блока")
	assert.Equal(t, JumpFalling, body.jumpState, "Удар обрывает прыжок")
	assert.Equal(t, vec.Vec3Float{X: 0.3}, body.jumpForce, "Обнуляется только вертикальная сила")
	assert.False(t, Collides(body.BoundingBoxAt(body.next), blocks(testBlock{0, 2, 0})))
}

func TestResolveJumpIgnoresFloor(t *testing.T) {
	// Прыжок начинается с пола: касание снизу не должно останавливать подъём
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: 1.5, Z: 0.5})
	body.jumpState = JumpJumping

	result := noStepEngine().Resolve(body, blocks(testBlock{0, 0, 0}, testBlock{0, 4, 0}))

	assert.Empty(t, result.Applied)
	assert.Equal(t, 1.5, body.next.Y)
	assert.Equal(t, JumpJumping, body.jumpState)
}

func TestResolveAutoStepAfterHover(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	floor := blocks(testBlock{0, 0, 0}, testBlock{1, 0, 0}, testBlock{1, 1, 0})

	// Короткое падение закончилось чуть выше пола
	hover := vec.Vec3Float{X: 0.5, Y: 1.0793503749999998, Z: 0.5}
	body := newBody(hover, hover)
	require.True(t, engine.CheckFalling(body, floor))
	assert.InDelta(t, 1.0, body.pos.Y, 1e-9, "Актёр ставится на верхнюю грань пола")

	body.next = body.pos.Add(vec.Vec3Float{X: 0.375})
	result := engine.Resolve(body, floor)

	require.True(t, result.Has(ResolutionStep), "После приземления ступенька должна работать")
	assert.InDelta(t, 2.0, body.next.Y, 1e-9)
}

func TestCheckFalling(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	standing := newBody(vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: 1, Z: 0.5})
	standing.jumpState = JumpFalling
	assert.True(t, engine.CheckFalling(standing, blocks(testBlock{0, 0, 0})))
	assert.True(t, standing.onGround)
	assert.Equal(t, JumpIdle, standing.jumpState, "Опора возвращает состояние покоя")
	assert.Equal(t, 1.0, standing.pos.Y, "Стоящий актёр не сдвигается")

	hanging := newBody(vec.Vec3Float{X: 0.5, Y: 3, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: 3, Z: 0.5})
	hanging.onGround = true
	assert.False(t, engine.CheckFalling(hanging, blocks(testBlock{0, 0, 0})))
	assert.False(t, hanging.onGround)
	assert.Equal(t, JumpFalling, hanging.jumpState, "Без опоры актёр начинает падать")

	empty := newBody(vec.Vec3Float{}, vec.Vec3Float{})
	empty.onGround = true
	assert.False(t, engine.CheckFalling(empty, nil), "Пустой список означает отсутствие опоры")
}

func TestCheckFallingSnapsOntoSupport(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	for _, y := range []float64{1.03, 1.05, 1.08} {
		body := newBody(vec.Vec3Float{X: 0.5, Y: y, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: y, Z: 0.5})
		require.True(t, engine.CheckFalling(body, blocks(testBlock{0, 0, 0})), "Y=%v", y)
		assert.InDelta(t, 1.0, body.pos.Y, 1e-9, "Зависший на %v актёр должен встать на пол", y)
		assert.Equal(t, body.pos, body.next)
		assert.True(t, body.onGround)
	}
}

func TestCheckFallingIgnoresBlocksAboveFeet(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// Голова застряла в блоке: он пересекает пробу, но опорой не является
	body := newBody(vec.Vec3Float{X: 0.5, Y: 1.8, Z: 0.5}, vec.Vec3Float{X: 0.5, Y: 1.8, Z: 0.5})
	body.onGround = true
	assert.False(t, engine.CheckFalling(body, blocks(testBlock{0, 3, 0})))
	assert.False(t, body.onGround)
	assert.Equal(t, 1.8, body.pos.Y)
}

func TestDegenerateBoxDoesNotCollide(t *testing.T) {
	point := shape.NewAABB(vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5}, vec.Vec3Float{})
	assert.False(t, Collides(point, blocks(testBlock{0, 0, 0})))
}

func TestApplyGravity(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	body := newBody(vec.Vec3Float{Y: 10}, vec.Vec3Float{Y: 10})
	fall := engine.ApplyGravity(body, 0.05)
	assert.InDelta(t, 9.80665*0.05*3*0.05, fall, 1e-12)
	assert.InDelta(t, 10-fall, body.next.Y, 1e-12)
	assert.Equal(t, 0.05, body.fallDuration)

	body.fallDuration = 100
	assert.Equal(t, 5.0, engine.ApplyGravity(body, 1), "Падение за тик ограничено")

	grounded := newBody(vec.Vec3Float{Y: 10}, vec.Vec3Float{Y: 10})
	grounded.onGround = true
	assert.Zero(t, engine.ApplyGravity(grounded, 0.05))
	assert.Equal(t, 10.0, grounded.next.Y)
}

func TestUpdateJumpForce(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	body := newBody(vec.Vec3Float{Y: 1}, vec.Vec3Float{Y: 1})
	body.jumpState = JumpJumping
	body.jumpForce = vec.Vec3Float{Y: 1}

	assert.True(t, engine.UpdateJumpForce(body, 0.05), "Сила ещё не израсходована")
	assert.InDelta(t, 1.5, body.next.Y, 1e-12)
	assert.InDelta(t, 0.5, body.jumpForce.Y, 1e-12)

	body.jumpForce = vec.Vec3Float{X: 0.02, Y: 0.04}
	assert.False(t, engine.UpdateJumpForce(body, 0.05), "Остаток ниже порога обнуляется")
	assert.InDelta(t, 1.54, body.next.Y, 1e-12, "Отсечённый остаток не теряется")
	assert.InDelta(t, 0.02, body.next.X, 1e-12)
	assert.Equal(t, vec.Vec3Float{}, body.jumpForce)
	assert.Equal(t, JumpFalling, body.jumpState)

	assert.False(t, engine.UpdateJumpForce(body, 0.05), "Без прыжка сила не применяется")
}

func TestResolutionString(t *testing.T) {
	assert.Equal(t, "wall_negative", ResolutionWallNegative.String())
	assert.Equal(t, "unknown", Resolution(200).String())
	assert.Equal(t, "falling", JumpFalling.String())
}
