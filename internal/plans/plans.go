package plans

const MB int64 = 1024 * 1024

// Unlimited marks a plan without a monthly render ceiling.
const Unlimited int64 = -1

// DefaultKey is the tier assigned to unknown plan keys and fresh profiles.
const DefaultKey = "free"

// Plan is a static catalog entry. The catalog is fixed at compile time and
// never mutated after process start.
type Plan struct {
	Key                 string
	Name                string
	MaxUploadBytes      int64
	MaxMonthlyRenders   int64 // Unlimited when negative
	SignedURLTTLSeconds int64
}

var catalog = []Plan{
	{
		Key:                 "free",
		Name:                "Free",
		MaxUploadBytes:      20 * MB,
		MaxMonthlyRenders:   25,
		SignedURLTTLSeconds: 60 * 30,
	},
	{
		Key:                 "pro",
		Name:                "Pro",
		MaxUploadBytes:      200 * MB,
		MaxMonthlyRenders:   250,
		SignedURLTTLSeconds: 60 * 60,
	},
	{
		Key:                 "enterprise",
		Name:                "Enterprise",
		MaxUploadBytes:      512 * MB,
		MaxMonthlyRenders:   Unlimited,
		SignedURLTTLSeconds: 60 * 60 * 24,
	},
}

// Catalog returns all plans in display order.
func Catalog() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Resolve returns the plan for key, falling back to the free tier for an
// empty or unknown key. It never fails.
func Resolve(key string) Plan {
	for _, p := range catalog {
		if p.Key == key {
			return p
		}
	}
	return catalog[0]
}

// Overrides carries the per-profile limit overrides. Nil pointers mean "use
// the plan default".
type Overrides struct {
	MonthlyRenderLimit  *int64
	UploadOverrideBytes *int64
}

// Limits is the resolved, per-request combination of plan defaults and
// profile overrides. Never persisted; recomputed on every request.
type Limits struct {
	MaxUploadBytes      int64
	MaxMonthlyRenders   int64 // Unlimited when negative
	SignedURLTTLSeconds int64
}

// Effective combines a plan with profile overrides. A positive upload
// override always wins; a present, non-negative render limit always wins.
func Effective(plan Plan, o Overrides) Limits {
	limits := Limits{
		MaxUploadBytes:      plan.MaxUploadBytes,
		MaxMonthlyRenders:   plan.MaxMonthlyRenders,
		SignedURLTTLSeconds: plan.SignedURLTTLSeconds,
	}
	if o.UploadOverrideBytes != nil && *o.UploadOverrideBytes > 0 {
		limits.MaxUploadBytes = *o.UploadOverrideBytes
	}
	if o.MonthlyRenderLimit != nil && *o.MonthlyRenderLimit >= 0 {
		limits.MaxMonthlyRenders = *o.MonthlyRenderLimit
	}
	return limits
}

// HasQuotaRemaining reports whether another render fits under the monthly
// ceiling.
func (l Limits) HasQuotaRemaining(currentCount int64) bool {
	if l.MaxMonthlyRenders < 0 {
		return true
	}
	return currentCount < l.MaxMonthlyRenders
}
