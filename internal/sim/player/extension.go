package player

// Extension is per-boat state that lives next to the Player but belongs to
// whichever boat entity the player currently has. While the player is not
// alive its contents are stale until the next boat claims it with Reset.
type Extension struct {
	// Reloads holds seconds until each armament can fire again; 0 means ready.
	Reloads []float32
	// TurretAngles holds each armament's current bearing in radians.
	TurretAngles []float32
	// AltitudeTarget is the depth the boat steers toward (negative is submerged).
	AltitudeTarget float32
	// ClaimedTick is the tick at which the current boat claimed the extension.
	ClaimedTick uint64
}

// Reset prepares the extension for a new boat with the given armament count,
// reusing its backing arrays.
func (e *Extension) Reset(armaments int, tick uint64) {
	e.Reloads = resize(e.Reloads, armaments)
	e.TurretAngles = resize(e.TurretAngles, armaments)
	e.AltitudeTarget = 0
	e.ClaimedTick = tick
}

// Reload advances every reload timer by dt seconds.
func (e *Extension) Reload(dt float32) {
	for i, r := range e.Reloads {
		if r <= dt {
			e.Reloads[i] = 0
			continue
		}
		e.Reloads[i] = r - dt
	}
}

func (e *Extension) Ready(i int) bool {
	return i >= 0 && i < len(e.Reloads) && e.Reloads[i] == 0
}

// Consume fires armament i if it is ready, starting a reload of the given length.
func (e *Extension) Consume(i int, reload float32) bool {
	if !e.Ready(i) {
		return false
	}
	e.Reloads[i] = reload
	return true
}

// FirstReady returns the index of the first ready armament, or -1.
func (e *Extension) FirstReady() int {
	for i := range e.Reloads {
		if e.Reloads[i] == 0 {
			return i
		}
	}
	return -1
}

func resize(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}
