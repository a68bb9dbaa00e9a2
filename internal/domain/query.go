package domain

type LatLng struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

type Circle struct {
	Center  LatLng
	RadiusM float64
}

// SearchQuery is the input of one API search. Polygon takes precedence over
// Circle when both are set.
type SearchQuery struct {
	Text       string
	Circle     *Circle
	Polygon    []LatLng
	MaxResults int
	Language   string
}

type BiasKind int

const (
	BiasNone BiasKind = iota
	BiasCircle
	BiasPolygon
)

// Bias reports which location bias is active for q.
func (q SearchQuery) Bias() BiasKind {
	switch {
	case len(q.Polygon) >= 3:
		return BiasPolygon
	case q.Circle != nil:
		return BiasCircle
	default:
		return BiasNone
	}
}
