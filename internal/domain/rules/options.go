package rules

import "strings"

// builder collects registry options before the registry is frozen.
type builder struct {
	squat         Rule
	press         Rule
	extra         []entry
	minVisibility float64
}

// Option configures a Registry.
type Option func(*builder)

// WithSquatThresholds overrides the squat knee thresholds. Zero values keep
// the current setting.
func WithSquatThresholds(contracted, extended, depthCue float64) Option {
	return func(b *builder) {
		if contracted > 0 {
			b.squat.ContractedBelow = contracted
		}
		if extended > 0 {
			b.squat.ExtendedAbove = extended
		}
		if depthCue > 0 {
			b.squat.DepthCue = depthCue
		}
	}
}

// WithPostureOffset overrides how far the shoulders may sit below the hips.
func WithPostureOffset(offset float64) Option {
	return func(b *builder) {
		if offset > 0 && b.squat.Posture != nil {
			p := *b.squat.Posture
			p.Offset = offset
			b.squat.Posture = &p
		}
	}
}

// WithPressThresholds overrides the press elbow thresholds.
func WithPressThresholds(contracted, extended float64) Option {
	return func(b *builder) {
		if contracted > 0 {
			b.press.ContractedBelow = contracted
		}
		if extended > 0 {
			b.press.ExtendedAbove = extended
		}
	}
}

// WithMinVisibility sets the landmark confidence every rule requires.
func WithMinVisibility(v float64) Option {
	return func(b *builder) {
		if v >= 0 && v <= 1 {
			b.minVisibility = v
		}
	}
}

// WithRule registers an additional family, matched after the built-in ones
// by any of keywords in the exercise name, or by its family as category.
func WithRule(rule Rule, keywords ...string) Option {
	return func(b *builder) {
		kws := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			kws = append(kws, strings.ToLower(strings.TrimSpace(kw)))
		}
		b.extra = append(b.extra, entry{keywords: kws, rule: rule})
	}
}
