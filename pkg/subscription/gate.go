package subscription

import "time"

// IsFeatureAllowed reports whether sub grants f right now.
// Role-based bypass (SUPER_ADMIN) is the caller's responsibility.
func IsFeatureAllowed(sub *Subscription, f Feature) bool {
	return IsFeatureAllowedAt(sub, f, time.Now())
}

// IsFeatureAllowedAt reports whether sub grants f at now. It is false for a
// nil subscription, a status other than ACTIVE or TRIALING, a period that
// ended at or before now, or a subscription without its plan attached.
func IsFeatureAllowedAt(sub *Subscription, f Feature, now time.Time) bool {
	if !sub.ActiveAt(now) || sub.Plan == nil {
		return false
	}
	return sub.Plan.HasFeature(f)
}

// AllowedFeatures lists the features sub grants at now, in catalog order.
func AllowedFeatures(sub *Subscription, now time.Time) []Feature {
	out := make([]Feature, 0, len(knownFeatures))
	for _, f := range knownFeatures {
		if IsFeatureAllowedAt(sub, f, now) {
			out = append(out, f)
		}
	}
	return out
}
