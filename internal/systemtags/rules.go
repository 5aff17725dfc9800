// Package systemtags derives system tags from image properties.
//
// The engine is an ordered list of independent rules; each rule is a pure
// predicate over the image's dimensions. Resolve must return identical
// results for identical input because it runs both at upload time and
// during full reconciliation.
package systemtags

// Dimensions is the rule input. SizeBytes is unused by the shipped rules
// but part of the contract for future ones.
type Dimensions struct {
	WidthPx   int
	HeightPx  int
	SizeBytes int64
}

// Rule maps a tag slug to the predicate deciding whether it applies.
type Rule struct {
	Name    string
	Applies func(Dimensions) bool
}

// matchesRatio tests an exact aspect ratio with integer cross-multiplication,
// avoiding float rounding false positives near the target ratio.
func matchesRatio(d Dimensions, ratioW, ratioH int) bool {
	if d.WidthPx <= 0 || d.HeightPx <= 0 {
		return false
	}
	return d.WidthPx*ratioH == d.HeightPx*ratioW
}

func minResolutionAndRatio(minW, minH, ratioW, ratioH int) func(Dimensions) bool {
	return func(d Dimensions) bool {
		return d.WidthPx >= minW && d.HeightPx >= minH && matchesRatio(d, ratioW, ratioH)
	}
}

func exactRatio(ratioW, ratioH int) func(Dimensions) bool {
	return func(d Dimensions) bool {
		return matchesRatio(d, ratioW, ratioH)
	}
}

// rules is evaluated in declaration order; Resolve preserves that order.
var rules = []Rule{
	{Name: "resolution/4k", Applies: minResolutionAndRatio(3840, 2160, 16, 9)},
	{Name: "aspect-ratio/16-9", Applies: exactRatio(16, 9)},
	{Name: "aspect-ratio/16-10", Applies: exactRatio(16, 10)},
}

// Resolve returns the slugs of all applicable system tags in rule order.
func Resolve(d Dimensions) []string {
	var out []string
	for _, rule := range rules {
		if rule.Applies(d) {
			out = append(out, rule.Name)
		}
	}
	return out
}
