package systemtags

// KindSeed defines a system-only tag kind required by the rule engine.
type KindSeed struct {
	Slug string
	Name string
}

// TagSeed defines a system tag required by the rule engine. Reconciliation
// fails fast when a rule emits a slug with no matching tag row, so every
// rule name must appear here.
type TagSeed struct {
	Slug string
	Name string
}

// Kinds returns the tag kinds the rule engine writes into.
func Kinds() []KindSeed {
	return []KindSeed{
		{Slug: "resolution", Name: "Resolution"},
		{Slug: "aspect-ratio", Name: "Aspect Ratio"},
	}
}

// Definitions returns one tag definition per rule, in rule order.
func Definitions() []TagSeed {
	return []TagSeed{
		{Slug: "resolution/4k", Name: "4K"},
		{Slug: "aspect-ratio/16-9", Name: "16:9"},
		{Slug: "aspect-ratio/16-10", Name: "16:10"},
	}
}
