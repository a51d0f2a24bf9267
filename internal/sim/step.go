package sim

import "time"

// Step advances the round by one display frame. Outside a running round it is
// a no-op. The pipeline per tick: steer, spawn, advance, collect coins, check
// hazards, decay particles.
func (e *Engine) Step() {
	if e.phase != PhaseRunning {
		return
	}

	e.steer()
	e.spawn()
	e.advance()

	if crashed := e.resolveCollisions(); crashed {
		return
	}

	e.decayParticles()
}

func (e *Engine) steer() {
	e.carX += (e.targetX - e.carX) * e.cfg.CarSmoothing
	max := e.cfg.RoadWidth - e.cfg.CarWidth
	if e.carX < 0 {
		e.carX = 0
	}
	if e.carX > max {
		e.carX = max
	}
}

func (e *Engine) spawn() {
	if e.rng.Float64() < e.cfg.CoinChance {
		e.coins = append(e.coins, roadObject{
			ID:     e.newObjectID("coin"),
			X:      e.rng.Float64() * (e.cfg.RoadWidth - e.cfg.CoinSize),
			Y:      -e.cfg.SpawnOffset,
			Width:  e.cfg.CoinSize,
			Height: e.cfg.CoinSize,
		})
	}
	if e.rng.Float64() < e.cfg.ObstacleChance {
		e.obstacles = append(e.obstacles, roadObject{
			ID:     e.newObjectID("obstacle"),
			X:      e.rng.Float64() * (e.cfg.RoadWidth - e.cfg.ObstacleWidth),
			Y:      -e.cfg.SpawnOffset,
			Width:  e.cfg.ObstacleWidth,
			Height: e.cfg.ObstacleHeight,
		})
	}
}

func (e *Engine) advance() {
	kept := e.coins[:0]
	for _, coin := range e.coins {
		coin.Y += e.speed
		if coin.Y > e.cfg.RoadHeight {
			continue
		}
		kept = append(kept, coin)
	}
	e.coins = kept

	keptObstacles := e.obstacles[:0]
	for _, obstacle := range e.obstacles {
		obstacle.Y += e.speed
		if obstacle.Y > e.cfg.RoadHeight {
			if e.session != nil {
				e.session.ObstaclesAvoided++
			}
			continue
		}
		keptObstacles = append(keptObstacles, obstacle)
	}
	e.obstacles = keptObstacles
}

// resolveCollisions handles coin pickups first, then hazards. A hazard hit
// ends the round immediately regardless of anything else still on the road.
func (e *Engine) resolveCollisions() bool {
	carY := e.cfg.RoadHeight - e.cfg.CarHeight - e.cfg.CarBottomMargin
	car := box{X: e.carX, Y: carY, Width: e.cfg.CarWidth, Height: e.cfg.CarHeight}

	kept := e.coins[:0]
	for _, coin := range e.coins {
		if overlaps(car, box{X: coin.X, Y: coin.Y, Width: coin.Width, Height: coin.Height}) {
			e.collectCoin(coin)
			continue
		}
		kept = append(kept, coin)
	}
	e.coins = kept

	for _, obstacle := range e.obstacles {
		if overlaps(car, box{X: obstacle.X, Y: obstacle.Y, Width: obstacle.Width, Height: obstacle.Height}) {
			e.endRound()
			return true
		}
	}
	return false
}

func (e *Engine) collectCoin(coin roadObject) {
	previous := e.score
	e.score += e.cfg.CoinValue
	e.applyLevelUps(previous, e.score)

	if e.session != nil {
		e.session.CoinsCollected++
		e.session.record(ActionCoinCollected, map[string]any{
			"coinId": coin.ID,
			"coinX":  coin.X,
			"coinY":  coin.Y,
		}, e.snapshot(), time.Now())
	}

	e.spawnBurst(coin.X+coin.Width/2, coin.Y+coin.Height/2)

	if e.events != nil {
		e.events.ScoreChanged(e.score, e.snapshot())
	}
}

// applyLevelUps walks every threshold crossed between the two scores. A jump
// of more than one LevelStep in a single tick still registers each crossing.
func (e *Engine) applyLevelUps(previous, current int) {
	step := e.cfg.LevelStep
	if step <= 0 {
		return
	}
	crossings := current/step - previous/step
	for i := 0; i < crossings; i++ {
		e.speedLevel++
		e.speed += e.cfg.SpeedIncrement
	}
}

func (e *Engine) endRound() {
	e.phase = PhaseEnded
	if e.events != nil {
		e.events.RoundEnded(e.session, e.score)
	}
}

func (e *Engine) spawnBurst(x, y float64) {
	for i := 0; i < 6; i++ {
		e.particles = append(e.particles, particle{
			X:    x,
			Y:    y,
			VX:   (e.rng.Float64() - 0.5) * 4,
			VY:   (e.rng.Float64() - 0.5) * 4,
			Life: 20,
		})
	}
}

func (e *Engine) decayParticles() {
	kept := e.particles[:0]
	for _, p := range e.particles {
		p.X += p.VX
		p.Y += p.VY
		p.Life--
		if p.Life <= 0 {
			continue
		}
		kept = append(kept, p)
	}
	e.particles = kept
}
