package meshio

import (
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection returns one polygon feature per active element, with
// the element ID and corner node IDs as properties.
func FeatureCollection(m PolyMesh) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range m.Active() {
		ring := make(orb.Ring, 0, p.Len()+1)
		for _, n := range p.Nodes {
			ring = append(ring, orb.Point{n.X, n.Y})
		}
		if len(ring) > 0 {
			ring = append(ring, ring[0])
		}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["id"] = p.ID
		f.Properties["nodes"] = p.IDs()
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes FeatureCollection(m) as JSON.
func WriteGeoJSON(w io.Writer, m PolyMesh) error {
	data, err := FeatureCollection(m).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
