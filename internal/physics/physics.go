package physics

import (
	"math"

	"github.com/annel0/voxel-core/internal/shape"
	"github.com/annel0/voxel-core/internal/vec"
)

const (
	axisX = 0
	axisZ = 2
)

// contactEpsilon: допуск при сравнении граней, набегающий от арифметики с плавающей точкой
const contactEpsilon = 1e-6

// Config: параметры физики
type Config struct {
	Pad             float64 // Зазор после горизонтального выталкивания
	StepCooldown    float64 // Пауза между автоподъёмами, секунды
	StepHeight      float64 // Высота пробы автоподъёма
	FallProbe       float64 // Насколько ниже позиции проверяется опора
	Gravity         float64 // Ускорение свободного падения
	GravityModifier float64
	MaxFallDistance float64 // Максимальное падение за один тик
	JumpDecay       float64 // Скорость затухания силы прыжка
	JumpCutoff      float64 // Компоненты силы прыжка меньше этого обнуляются
	AutoStep        bool
}

// DefaultConfig возвращает стандартные параметры физики
func DefaultConfig() Config {
	return Config{
		Pad:             0.01,
		StepCooldown:    0.25,
		StepHeight:      1.0,
		FallProbe:       0.1,
		Gravity:         9.80665,
		GravityModifier: 3.0,
		MaxFallDistance: 5.0,
		JumpDecay:       10.0,
		JumpCutoff:      0.025,
		AutoStep:        true,
	}
}

// Result перечисляет коррекции, применённые за один вызов Resolve
type Result struct {
	Applied []Resolution
}

// Has проверяет, применялась ли коррекция указанного вида
func (r Result) Has(res Resolution) bool {
	for _, a := range r.Applied {
		if a == res {
			return true
		}
	}
	return false
}

func (r *Result) add(res Resolution) {
	r.Applied = append(r.Applied, res)
}

// Engine разрешает столкновения актёров с блоками.
// Состояния между вызовами не хранит: всё, что нужно, передаётся параметрами.
type Engine struct {
	cfg Config
}

// NewEngine создаёт физический движок с указанной конфигурацией
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config возвращает параметры движка
func (e *Engine) Config() Config {
	return e.cfg
}

// Resolve исправляет NextPosition актёра так, чтобы его коробка не проникала в блоки.
// Порядок: автоподъём, вертикаль, затем горизонталь, начиная с оси с большим смещением.
// Во время прыжка по вертикали проверяется только потолок. Пустой список блоков ничего не меняет.
func (e *Engine) Resolve(body Body, blocks []Collidable) Result {
	var result Result
	if body.IsFlying() || len(blocks) == 0 {
		return result
	}

	cur := body.Position()
	next := body.NextPosition()

	if e.cfg.AutoStep && body.IsOnGround() && body.StepCooldown() <= 0 {
		if rise, ok := e.stepHeight(body, next, blocks); ok {
			next.Y += rise
			body.SetNextPosition(next)
			body.SetOnGround(true)
			body.SetJumpState(JumpIdle)
			body.SetStepCooldown(e.cfg.StepCooldown)
			result.add(ResolutionStep)
			return result
		}
	}

	resolved := vec.Vec3Float{X: cur.X, Y: next.Y, Z: cur.Z}
	if body.IsJumping() {
		resolved.Y = e.resolveJumpCeiling(body, resolved, next.Y-cur.Y, blocks, &result)
	} else {
		resolved.Y = e.resolveVertical(body, resolved, next.Y-cur.Y, blocks, &result)
	}

	delta := next.Sub(cur)
	if math.Abs(delta.Z) > math.Abs(delta.X) {
		resolved.Z = e.resolveHorizontal(body, resolved, axisZ, next.Z, delta.Z, blocks, &result)
		resolved.X = e.resolveHorizontal(body, resolved, axisX, next.X, delta.X, blocks, &result)
	} else {
		resolved.X = e.resolveHorizontal(body, resolved, axisX, next.X, delta.X, blocks, &result)
		resolved.Z = e.resolveHorizontal(body, resolved, axisZ, next.Z, delta.Z, blocks, &result)
	}

	body.SetNextPosition(resolved)
	return result
}

// stepHeight ищет блок на уровне ног, который можно перешагнуть.
// Подъём разрешён, только если коробка, поставленная на верх блока, ничего не задевает.
func (e *Engine) stepHeight(body Body, next vec.Vec3Float, blocks []Collidable) (float64, bool) {
	box := body.BoundingBoxAt(next)
	feet := box.Min().Y

	for _, b := range blocks {
		blockBox := b.BoundingBox()
		if !box.Intersects(blockBox) {
			continue
		}

		top := blockBox.Max().Y
		if math.Abs(blockBox.Min().Y-feet) > contactEpsilon || top > box.Max().Y+contactEpsilon {
			continue
		}

		rise := top - feet
		if rise > e.cfg.StepHeight+contactEpsilon {
			continue
		}

		boxMin, boxMax := box.Min(), box.Max()
		raised := shape.FromMinMax(
			vec.Vec3Float{X: boxMin.X, Y: top, Z: boxMin.Z},
			vec.Vec3Float{X: boxMax.X, Y: top + box.Size.Y, Z: boxMax.Z},
		)
		if Collides(raised, blocks) {
			return 0, false
		}
		return rise, true
	}
	return 0, false
}

// resolveJumpCeiling упирает голову прыгающего актёра в нижнюю грань блока над ним.
// Удар обрывает прыжок: вертикальная сила обнуляется, актёр начинает падать.
func (e *Engine) resolveJumpCeiling(body Body, pos vec.Vec3Float, dy float64, blocks []Collidable, result *Result) float64 {
	if dy <= 0 {
		return pos.Y
	}

	box := body.BoundingBoxAt(pos)
	depth := 0.0
	for _, b := range blocks {
		blockBox := b.BoundingBox()
		if !box.Intersects(blockBox) || blockBox.Min().Y <= box.Min().Y {
			continue
		}
		depth = max(depth, box.Max().Y-blockBox.Min().Y)
	}
	if depth <= 0 {
		return pos.Y
	}

	body.SetJumpState(JumpFalling)
	if jumper, ok := body.(Jumper); ok {
		force := jumper.JumpForce()
		force.Y = 0
		jumper.SetJumpForce(force)
	}
	result.add(ResolutionCeiling)
	return pos.Y - depth
}

func (e *Engine) resolveVertical(body Body, pos vec.Vec3Float, dy float64, blocks []Collidable, result *Result) float64 {
	box := body.BoundingBoxAt(pos)
	contact := false

	for _, b := range blocks {
		res, depth := classifyVertical(box, b.BoundingBox(), dy)

		switch res {
		case ResolutionRest:
			contact = true
			body.SetOnGround(true)
		case ResolutionCeiling:
			pos.Y -= depth
		case ResolutionFloor:
			pos.Y += depth
			contact = true
			body.SetOnGround(true)
		default:
			continue
		}

		result.add(res)
		box = body.BoundingBoxAt(pos)
	}

	if !contact {
		body.SetOnGround(false)
	}
	return pos.Y
}

func (e *Engine) resolveHorizontal(body Body, pos vec.Vec3Float, axis int, target, delta float64, blocks []Collidable, result *Result) float64 {
	setAxis(&pos, axis, target)
	box := body.BoundingBoxAt(pos)

	for _, b := range blocks {
		res, depth := classifyHorizontal(box, b.BoundingBox(), axis, delta)

		switch res {
		case ResolutionWallPositive:
			setAxis(&pos, axis, getAxis(pos, axis)-depth-e.cfg.Pad)
		case ResolutionWallNegative:
			setAxis(&pos, axis, getAxis(pos, axis)+depth+e.cfg.Pad)
		default:
			continue
		}

		result.add(res)
		box = body.BoundingBoxAt(pos)
	}
	return getAxis(pos, axis)
}

// CheckFalling проверяет опору под актёром, сдвигая его коробку на FallProbe вниз.
// Опорой считается только блок, верх которого не выше ног. Если актёр завис над
// опорой в пределах пробы, он ставится точно на её верхнюю грань.
// Без опоры актёр перестаёт стоять на земле и начинает падать.
func (e *Engine) CheckFalling(body Body, blocks []Collidable) bool {
	pos := body.Position()
	feet := body.BoundingBoxAt(pos).Min().Y
	probe := body.BoundingBoxAt(pos.Add(vec.Vec3Float{Y: -e.cfg.FallProbe}))

	support, found := 0.0, false
	for _, b := range blocks {
		blockBox := b.BoundingBox()
		top := blockBox.Max().Y
		if !probe.Intersects(blockBox) || top > feet+contactEpsilon {
			continue
		}
		if !found || top > support {
			support, found = top, true
		}
	}

	if found {
		if gap := feet - support; gap != 0 {
			pos.Y -= gap
			body.SetPosition(pos)
		}
		body.SetOnGround(true)
		body.SetJumpState(JumpIdle)
		return true
	}

	body.SetOnGround(false)
	if body.JumpState() == JumpIdle {
		body.SetJumpState(JumpFalling)
	}
	return false
}

// ApplyGravity опускает NextPosition падающего актёра и возвращает пройденное расстояние
func (e *Engine) ApplyGravity(body Faller, dt float64) float64 {
	if body.IsFlying() || body.IsOnGround() || body.IsJumping() || dt <= 0 {
		return 0
	}

	fall := e.cfg.Gravity * (body.FallDuration() + dt) * e.cfg.GravityModifier * dt
	fall = min(fall, e.cfg.MaxFallDistance)

	next := body.NextPosition()
	next.Y -= fall
	body.SetNextPosition(next)
	body.AccumulateFall(dt, fall)

	return fall
}

// UpdateJumpForce расходует часть силы прыжка и сдвигает на неё NextPosition.
// Остаток ниже JumpCutoff расходуется в этом же тике целиком.
// Возвращает true, пока актёр продолжает набирать высоту.
func (e *Engine) UpdateJumpForce(body Jumper, dt float64) bool {
	if !body.IsJumping() {
		return false
	}

	force := body.JumpForce()
	remaining := force.Lerp(vec.Vec3Float{}, min(e.cfg.JumpDecay*dt, 1))
	remaining = vec.Vec3Float{
		X: cutoff(remaining.X, e.cfg.JumpCutoff),
		Y: cutoff(remaining.Y, e.cfg.JumpCutoff),
		Z: cutoff(remaining.Z, e.cfg.JumpCutoff),
	}

	body.SetNextPosition(body.NextPosition().Add(force.Sub(remaining)))
	body.SetJumpForce(remaining)

	if remaining.Y <= 0 {
		body.SetJumpState(JumpFalling)
		return false
	}
	return true
}

// Collides проверяет, пересекает ли коробка хотя бы один блок
func Collides(box shape.AABB, blocks []Collidable) bool {
	for _, b := range blocks {
		if box.Intersects(b.BoundingBox()) {
			return true
		}
	}
	return false
}

func cutoff(v, limit float64) float64 {
	if math.Abs(v) <= limit {
		return 0
	}
	return v
}

func getAxis(v vec.Vec3Float, axis int) float64 {
	if axis == axisZ {
		return v.Z
	}
	return v.X
}

func setAxis(v *vec.Vec3Float, axis int, value float64) {
	if axis == axisZ {
		v.Z = value
		return
	}
	v.X = value
}
