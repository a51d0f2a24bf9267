package sim

import (
	"fmt"
	"math/rand"
	"time"
)

// Phase is the round lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Config tunes the road geometry and spawn behavior. Distances are pixels,
// speeds are pixels per tick.
type Config struct {
	RoadWidth       float64
	RoadHeight      float64
	CarWidth        float64
	CarHeight       float64
	CarBottomMargin float64
	CarSmoothing    float64
	CoinSize        float64
	ObstacleWidth   float64
	ObstacleHeight  float64
	SpawnOffset     float64
	CoinChance      float64
	ObstacleChance  float64
	CoinValue       int
	LevelStep       int
	BaseSpeed       float64
	SpeedIncrement  float64
}

func DefaultConfig() Config {
	return Config{
		RoadWidth:       400,
		RoadHeight:      600,
		CarWidth:        40,
		CarHeight:       70,
		CarBottomMargin: 20,
		CarSmoothing:    0.1,
		CoinSize:        24,
		ObstacleWidth:   44,
		ObstacleHeight:  70,
		SpawnOffset:     80,
		CoinChance:      0.02,
		ObstacleChance:  0.01,
		CoinValue:       10,
		LevelStep:       50,
		BaseSpeed:       2.0,
		SpeedIncrement:  0.3,
	}
}

// Events receives engine notifications. Calls happen synchronously from
// inside Step and must not block.
type Events interface {
	// ScoreChanged fires once per collected coin.
	ScoreChanged(score int, snapshot StateSnapshot)
	// RoundEnded fires exactly once per round, on the hazard collision. The
	// session is immutable from this point on.
	RoundEnded(session *GameSession, finalScore int)
}

type roadObject struct {
	ID     string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type particle struct {
	X    float64
	Y    float64
	VX   float64
	VY   float64
	Life int
}

// Engine runs one round at a time on a single goroutine. It is not safe for
// concurrent use; the caller owns the tick cadence.
type Engine struct {
	cfg    Config
	rng    *rand.Rand
	events Events

	phase      Phase
	carX       float64
	targetX    float64
	score      int
	speed      float64
	speedLevel int
	coins      []roadObject
	obstacles  []roadObject
	particles  []particle
	session    *GameSession
	nextObject uint64
}

// NewEngine seeds the spawn RNG. A zero seed falls back to wall-clock time.
func NewEngine(cfg Config, seed int64, events Events) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		events: events,
		phase:  PhaseIdle,
	}
}

// Start begins a new round, discarding any previous one. Restart after a
// crash behaves identically.
func (e *Engine) Start(identity string) *GameSession {
	e.phase = PhaseRunning
	e.carX = (e.cfg.RoadWidth - e.cfg.CarWidth) / 2
	e.targetX = e.carX
	e.score = 0
	e.speed = e.cfg.BaseSpeed
	e.speedLevel = 0
	e.coins = e.coins[:0]
	e.obstacles = e.obstacles[:0]
	e.particles = e.particles[:0]
	e.session = NewGameSession(identity, time.Now())
	return e.session
}

// SetTarget steers the car toward the given left-edge X. The value is clamped
// to the road; the car itself moves by smoothing, never teleports.
func (e *Engine) SetTarget(x float64) {
	max := e.cfg.RoadWidth - e.cfg.CarWidth
	if x < 0 {
		x = 0
	}
	if x > max {
		x = max
	}
	e.targetX = x
}

func (e *Engine) Phase() Phase          { return e.phase }
func (e *Engine) Score() int            { return e.score }
func (e *Engine) SpeedLevel() int       { return e.speedLevel }
func (e *Engine) Speed() float64        { return e.speed }
func (e *Engine) CarX() float64         { return e.carX }
func (e *Engine) Session() *GameSession { return e.session }

func (e *Engine) snapshot() StateSnapshot {
	return StateSnapshot{Score: e.score, SpeedLevel: e.speedLevel, CarX: e.carX}
}

// Snapshot reports the live state for diagnostics.
type Snapshot struct {
	Phase      string  `json:"phase"`
	Score      int     `json:"score"`
	Speed      float64 `json:"speed"`
	SpeedLevel int     `json:"speedLevel"`
	CarX       float64 `json:"carX"`
	Coins      int     `json:"coins"`
	Obstacles  int     `json:"obstacles"`
	Particles  int     `json:"particles"`
}

func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Phase:      e.phase.String(),
		Score:      e.score,
		Speed:      e.speed,
		SpeedLevel: e.speedLevel,
		CarX:       e.carX,
		Coins:      len(e.coins),
		Obstacles:  len(e.obstacles),
		Particles:  len(e.particles),
	}
}

func (e *Engine) newObjectID(prefix string) string {
	e.nextObject++
	return fmt.Sprintf("%s-%d", prefix, e.nextObject)
}
