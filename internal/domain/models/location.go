// internal/domain/models/location.go
package models

import (
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
)

// Coordinates is a lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// CoordinatesFromDoc builds Coordinates, accepting either key spelling
// found in remote data. ok is false when no usable pair is present.
func CoordinatesFromDoc(d store.Document) (Coordinates, bool) {
	if d == nil {
		return Coordinates{}, false
	}
	lat, okLat := docFloat(d, "latitude")
	if !okLat {
		lat, okLat = docFloat(d, "lat")
	}
	lng, okLng := docFloat(d, "longitude")
	if !okLng {
		lng, okLng = docFloat(d, "lng")
	}
	if !okLat || !okLng {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

// Location is a pickup or drop-off site, either standalone on a town or
// attached to a team.
type Location struct {
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Status      string       `json:"status,omitempty"`
	Active      bool         `json:"active"`
	Team        *Team        `json:"team,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Created     *time.Time   `json:"created,omitempty"`
}

// LocationFromDoc builds a Location from a raw document. Active defaults
// to true when the field is absent or non-boolean; Created is nil unless
// the value parses as a date.
func LocationFromDoc(d store.Document) Location {
	if d == nil {
		return Location{Active: true}
	}
	loc := Location{
		Name:        docString(d, "name"),
		Description: docString(d, "description"),
		Status:      docString(d, "status"),
		Active:      docBool(d, "active", true),
		Created:     docTime(d, "created"),
	}
	if teamDoc := docMap(d, "team"); teamDoc != nil {
		team := TeamFromDoc(teamDoc)
		loc.Team = &team
	}
	if coords, ok := CoordinatesFromDoc(docMap(d, "coordinates")); ok {
		loc.Coordinates = &coords
	}
	return loc
}
