package pagination

const (
	// DefaultLimit is the page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows a single listing can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Offset int
}

// Bounds lets deployments override the defaults above.
type Bounds struct {
	Default int
	Max     int
}

// DefaultBounds mirrors DefaultLimit and MaxLimit.
func DefaultBounds() Bounds {
	return Bounds{Default: DefaultLimit, Max: MaxLimit}
}

// NormalizeLimit enforces the default and maximum limits.
func NormalizeLimit(limit int) int {
	return DefaultBounds().NormalizeLimit(limit)
}

func (b Bounds) NormalizeLimit(limit int) int {
	def, max := b.Default, b.Max
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// Normalize clamps the limit and floors the offset at zero.
func (b Bounds) Normalize(p Params) Params {
	if p.Offset < 0 {
		p.Offset = 0
	}
	p.Limit = b.NormalizeLimit(p.Limit)
	return p
}
