package world

// DefaultTrackingRange mirrors the client entity tracking range; the default
// perception radius is two thirds of it.
const DefaultTrackingRange = 48.0

type PerceptionPolicy struct {
	DefaultRadius float64
}

func DefaultPerceptionPolicy() PerceptionPolicy {
	return PerceptionPolicy{DefaultRadius: DefaultTrackingRange / 1.5}
}

// Radius resolves the effective radius: a positive override wins, otherwise
// the policy default.
func (p PerceptionPolicy) Radius(override float64) float64 {
	if override > 0 {
		return override
	}
	if p.DefaultRadius > 0 {
		return p.DefaultRadius
	}
	return DefaultTrackingRange / 1.5
}

func (p PerceptionPolicy) Perceivable(object, observer Position, override float64) bool {
	return Distance(object, observer) <= p.Radius(override)
}
