package env

import (
	"fmt"
	"math/rand"
	"strings"
)

// Discrete action indices, in the canonical order used by the
// configuration's action_space.
const (
	ActionTurnLeft = iota
	ActionTurnRight
	ActionGoForward
	ActionPickUp
	ActionDrop
	ActionToggle
)

var actionNames = []string{"turn_left", "turn_right", "go_forward", "pick_up", "drop", "toggle"}

type objectKind string

const (
	kindKey  objectKind = "key"
	kindBall objectKind = "ball"
	kindBox  objectKind = "box"
)

var colors = []string{"red", "green", "blue", "purple", "yellow", "grey"}

type object struct {
	kind  objectKind
	color string
}

func (o object) String() string { return o.color + " " + string(o.kind) }

type door struct {
	color string
	open  bool
	x, y  int
}

type missionKind int

const (
	missionGoTo missionKind = iota
	missionPickUp
	missionOpen
	missionPutNext
)

type mission struct {
	kind   missionKind
	target object // goto / pickup target, or putnext moved object
	anchor object // putnext reference object
}

func (m mission) String() string {
	switch m.kind {
	case missionGoTo:
		return "go to the " + m.target.String()
	case missionPickUp:
		return "pick up the " + m.target.String()
	case missionOpen:
		return "open the " + m.target.color + " door"
	default:
		return "put the " + m.target.String() + " next to the " + m.anchor.String()
	}
}

// BabyAIEnv is a single-room grid world with colored keys, balls and
// boxes, a door on one wall, and text missions over them. Observations
// are rendered as egocentric sentences ("You see a green ball 2 steps
// forward"), the convention grounded-language agents are prompted with.
type BabyAIEnv struct {
	size     int // room side, walls included
	maxSteps int
	missions []missionKind

	rng      *rand.Rand
	objects  map[[2]int]object
	door     door
	mission  mission
	agentX   int
	agentY   int
	agentDir int // 0 east, 1 south, 2 west, 3 north
	carrying *object
	steps    int
}

// NewMixedTestLocal builds the environment registered as
// BabyAI-MixedTestLocal-v0: missions mix goto, pickup, open and
// putnext in a single 8x8 room.
func NewMixedTestLocal() *BabyAIEnv {
	return &BabyAIEnv{
		size:     8,
		maxSteps: 64,
		missions: []missionKind{missionGoTo, missionPickUp, missionOpen, missionPutNext},
	}
}

// NewGoToLocal builds the environment registered as
// BabyAI-GoToLocal-v0: goto missions only.
func NewGoToLocal() *BabyAIEnv {
	return &BabyAIEnv{
		size:     8,
		maxSteps: 64,
		missions: []missionKind{missionGoTo},
	}
}

func init() {
	Register("BabyAI-MixedTestLocal-v0", func() Env { return NewMixedTestLocal() })
	Register("BabyAI-GoToLocal-v0", func() Env { return NewGoToLocal() })
}

func (e *BabyAIEnv) Actions() []string { return actionNames }
func (e *BabyAIEnv) MaxSteps() int     { return e.maxSteps }

func (e *BabyAIEnv) Reset(seed int64) Observation {
	e.rng = rand.New(rand.NewSource(seed))
	e.objects = make(map[[2]int]object)
	e.carrying = nil
	e.steps = 0
	e.agentX, e.agentY = -1, -1

	// Door on a random non-corner wall cell.
	wall := e.rng.Intn(4)
	off := 1 + e.rng.Intn(e.size-2)
	switch wall {
	case 0:
		e.door = door{x: off, y: 0}
	case 1:
		e.door = door{x: off, y: e.size - 1}
	case 2:
		e.door = door{x: 0, y: off}
	default:
		e.door = door{x: e.size - 1, y: off}
	}
	e.door.color = colors[e.rng.Intn(len(colors))]
	e.door.open = false

	numObjects := 5 + e.rng.Intn(3)
	for len(e.objects) < numObjects {
		pos := e.randomFreeCell()
		e.objects[pos] = object{
			kind:  []objectKind{kindKey, kindBall, kindBox}[e.rng.Intn(3)],
			color: colors[e.rng.Intn(len(colors))],
		}
	}

	pos := e.randomFreeCell()
	e.agentX, e.agentY = pos[0], pos[1]
	e.agentDir = e.rng.Intn(4)

	e.sampleMission()
	return e.observe()
}

func (e *BabyAIEnv) randomFreeCell() [2]int {
	for {
		pos := [2]int{1 + e.rng.Intn(e.size-2), 1 + e.rng.Intn(e.size-2)}
		if _, occupied := e.objects[pos]; occupied {
			continue
		}
		if pos[0] == e.agentX && pos[1] == e.agentY {
			continue
		}
		return pos
	}
}

func (e *BabyAIEnv) sampleMission() {
	kind := e.missions[e.rng.Intn(len(e.missions))]
	objs := make([]object, 0, len(e.objects))
	for _, o := range e.objects {
		objs = append(objs, o)
	}
	switch kind {
	case missionOpen:
		e.mission = mission{kind: kind, target: object{color: e.door.color}}
	case missionPutNext:
		i := e.rng.Intn(len(objs))
		j := e.rng.Intn(len(objs) - 1)
		if j >= i {
			j++
		}
		e.mission = mission{kind: kind, target: objs[i], anchor: objs[j]}
	default:
		e.mission = mission{kind: kind, target: objs[e.rng.Intn(len(objs))]}
	}
}

func (e *BabyAIEnv) Step(action int) (Observation, float64, bool, error) {
	if action < 0 || action >= len(actionNames) {
		return Observation{}, 0, false, fmt.Errorf("env: action %d out of range [0, %d)", action, len(actionNames))
	}
	e.steps++

	fx, fy := e.front()
	switch action {
	case ActionTurnLeft:
		e.agentDir = (e.agentDir + 3) % 4
	case ActionTurnRight:
		e.agentDir = (e.agentDir + 1) % 4
	case ActionGoForward:
		if e.passable(fx, fy) {
			e.agentX, e.agentY = fx, fy
		}
	case ActionPickUp:
		if obj, ok := e.objects[[2]int{fx, fy}]; ok && e.carrying == nil {
			e.carrying = &obj
			delete(e.objects, [2]int{fx, fy})
		}
	case ActionDrop:
		if e.carrying != nil && e.passable(fx, fy) {
			e.objects[[2]int{fx, fy}] = *e.carrying
			e.carrying = nil
		}
	case ActionToggle:
		if fx == e.door.x && fy == e.door.y {
			e.door.open = !e.door.open
		}
	}

	if e.success() {
		// BabyAI convention: quicker episodes earn more.
		reward := 1 - 0.9*float64(e.steps)/float64(e.maxSteps)
		return e.observe(), reward, true, nil
	}
	if e.steps >= e.maxSteps {
		return e.observe(), 0, true, nil
	}
	return e.observe(), 0, false, nil
}

func (e *BabyAIEnv) front() (int, int) {
	dx := []int{1, 0, -1, 0}[e.agentDir]
	dy := []int{0, 1, 0, -1}[e.agentDir]
	return e.agentX + dx, e.agentY + dy
}

func (e *BabyAIEnv) passable(x, y int) bool {
	if x <= 0 || y <= 0 || x >= e.size-1 || y >= e.size-1 {
		return false
	}
	_, occupied := e.objects[[2]int{x, y}]
	return !occupied
}

func (e *BabyAIEnv) success() bool {
	m := e.mission
	switch m.kind {
	case missionGoTo:
		fx, fy := e.front()
		obj, ok := e.objects[[2]int{fx, fy}]
		return ok && obj == m.target
	case missionPickUp:
		return e.carrying != nil && *e.carrying == m.target
	case missionOpen:
		return e.door.open
	default: // putnext
		for pos, obj := range e.objects {
			if obj != m.target {
				continue
			}
			for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				neighbor, ok := e.objects[[2]int{pos[0] + d[0], pos[1] + d[1]}]
				if ok && neighbor == m.anchor {
					return true
				}
			}
		}
		return false
	}
}

// observe renders the scene relative to the agent's heading, closest
// objects first.
func (e *BabyAIEnv) observe() Observation {
	var descs []string
	if e.carrying != nil {
		descs = append(descs, "You carry a "+e.carrying.String())
	}

	if d := e.wallAhead(); d > 0 {
		descs = append(descs, fmt.Sprintf("You see a wall %s forward", steps(d)))
	}

	type seen struct {
		text string
		dist int
	}
	var visible []seen
	for pos, obj := range e.objects {
		fwd, right, ok := e.relative(pos[0], pos[1])
		if !ok {
			continue
		}
		visible = append(visible, seen{
			text: fmt.Sprintf("You see a %s %s", obj, locate(fwd, right)),
			dist: fwd + abs(right),
		})
	}
	if fwd, right, ok := e.relative(e.door.x, e.door.y); ok {
		state := "closed"
		if e.door.open {
			state = "open"
		}
		visible = append(visible, seen{
			text: fmt.Sprintf("You see a %s %s door %s", state, e.door.color, locate(fwd, right)),
			dist: fwd + abs(right),
		})
	}
	for i := 0; i < len(visible); i++ {
		for j := i + 1; j < len(visible); j++ {
			if visible[j].dist < visible[i].dist {
				visible[i], visible[j] = visible[j], visible[i]
			}
		}
	}
	for _, v := range visible {
		descs = append(descs, v.text)
	}

	return Observation{Goal: e.mission.String(), Descriptions: descs}
}

// relative converts grid coordinates into (forward, right) components
// of the agent's frame, reporting ok only for cells inside the agent's
// field of view.
func (e *BabyAIEnv) relative(x, y int) (fwd, right int, ok bool) {
	dx, dy := x-e.agentX, y-e.agentY
	switch e.agentDir {
	case 0: // east
		fwd, right = dx, dy
	case 1: // south
		fwd, right = dy, -dx
	case 2: // west
		fwd, right = -dx, -dy
	default: // north
		fwd, right = -dy, dx
	}
	if fwd < 0 || fwd > 6 || abs(right) > 3 {
		return 0, 0, false
	}
	return fwd, right, true
}

func (e *BabyAIEnv) wallAhead() int {
	switch e.agentDir {
	case 0:
		return e.size - 1 - e.agentX
	case 1:
		return e.size - 1 - e.agentY
	case 2:
		return e.agentX
	default:
		return e.agentY
	}
}

func locate(fwd, right int) string {
	var parts []string
	switch {
	case right < 0:
		parts = append(parts, steps(-right)+" left")
	case right > 0:
		parts = append(parts, steps(right)+" right")
	}
	if fwd > 0 {
		parts = append(parts, steps(fwd)+" forward")
	}
	if len(parts) == 0 {
		return "right here"
	}
	return strings.Join(parts, " and ")
}

func steps(n int) string {
	if n == 1 {
		return "1 step"
	}
	return fmt.Sprintf("%d steps", n)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
