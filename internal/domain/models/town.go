// internal/domain/models/town.go
package models

import "github.com/dalemusser/greencrew/internal/app/store"

// Town is the document stored at towns/{id}. The id is the remote
// document key, not a field of the document itself.
type Town struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	County          string     `json:"county,omitempty"`
	PickupLocations []Location `json:"pickupLocations,omitempty"`
}

// TownFromDoc builds a Town from a raw town document and its document key.
func TownFromDoc(d store.Document, id string) Town {
	t := Town{ID: id}
	if d == nil {
		return t
	}
	t.Name = docString(d, "name")
	t.County = docString(d, "county")
	for _, entry := range docSlice(d, "pickupLocations") {
		if m, ok := entry.(map[string]any); ok {
			t.PickupLocations = append(t.PickupLocations, LocationFromDoc(store.Document(m)))
		}
	}
	return t
}
