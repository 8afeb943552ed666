package sim

import "math"

// IDM parameter defaults, in meters and seconds.
const (
	defaultVehicleLength = 4.0
	defaultMinGap        = 4.0
	defaultReactionTime  = 1.0
	defaultMaxSpeed      = 16.6
	defaultMaxAccel      = 1.44
	defaultMaxDecel      = 4.61
)

// Vehicle is a moving object owned by exactly one road queue at a time.
// Motion follows the Intelligent Driver Model with explicit Euler
// integration; the owning road guarantees vehicles stay ordered and
// never overtake.
type Vehicle struct {
	Length       float64
	MinGap       float64
	ReactionTime float64
	MaxSpeed     float64
	MaxAccel     float64
	MaxDecel     float64

	X float64 // longitudinal position along the current road
	V float64 // velocity
	A float64 // acceleration applied next step

	SpawnTime float64
	Path      []int // ordered road indices, fixed at spawn
	PathIndex int   // pointer into Path

	stopped   bool
	slowSpeed float64 // target speed while in a slow zone, 0 when unrestricted
}

// NewVehicle creates a vehicle with default IDM parameters on the given path.
func NewVehicle(path []int, spawnTime float64) *Vehicle {
	return &Vehicle{
		Length:       defaultVehicleLength,
		MinGap:       defaultMinGap,
		ReactionTime: defaultReactionTime,
		MaxSpeed:     defaultMaxSpeed,
		MaxAccel:     defaultMaxAccel,
		MaxDecel:     defaultMaxDecel,
		Path:         path,
		SpawnTime:    spawnTime,
	}
}

// Update advances position and velocity by dt, then computes the
// acceleration for the next step from the lead vehicle (nil when this
// vehicle is the lead).
func (v *Vehicle) Update(dt float64, lead *Vehicle) {
	// Euler step; a deceleration that would reverse the vehicle is
	// clamped to a full stop at the braking distance.
	if v.V+v.A*dt < 0 {
		v.X -= v.V * v.V / (2 * v.A)
		v.V = 0
	} else {
		v.V += v.A * dt
		v.X += v.V*dt + v.A*dt*dt/2
	}

	interaction := 0.0
	if lead != nil {
		gap := lead.X - v.X - lead.Length
		dv := v.V - lead.V
		sqrtAB := 2 * math.Sqrt(v.MaxAccel*v.MaxDecel)
		desired := v.MinGap + math.Max(0, v.ReactionTime*v.V+dv*v.V/sqrtAB)
		interaction = desired / gap
	}

	target := v.MaxSpeed
	if v.slowSpeed > 0 {
		target = v.slowSpeed
	}
	v.A = v.MaxAccel * (1 - math.Pow(v.V/target, 4) - interaction*interaction)

	if v.stopped {
		v.A = -v.MaxDecel * v.V / v.MaxSpeed
	}
}

// Stop puts the vehicle into forced braking (red signal stop zone).
func (v *Vehicle) Stop() {
	v.stopped = true
}

// Go releases a forced stop.
func (v *Vehicle) Go() {
	v.stopped = false
}

// SlowTo caps the vehicle's target speed (red signal slow zone).
func (v *Vehicle) SlowTo(speed float64) {
	v.slowSpeed = speed
}

// Unslow restores the vehicle's normal target speed.
func (v *Vehicle) Unslow() {
	v.slowSpeed = 0
}

// Stopped reports whether the vehicle is under a forced stop.
func (v *Vehicle) Stopped() bool {
	return v.stopped
}

// TotalWaitingTime returns the elapsed time since the vehicle entered
// the map.
func (v *Vehicle) TotalWaitingTime(now float64) float64 {
	return now - v.SpawnTime
}
