package memory

import (
	"encoding/json"
	"fmt"
)

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Trees          map[string]Tree         `json:"trees"`
	Locations      map[string]TreeLocation `json:"locations"`
	Species        map[string]Species      `json:"species"`
	Municipalities map[string]Municipality `json:"municipalities"`
	Users          map[string]User         `json:"users"`
	Statuses       map[string]TreeStatus   `json:"statuses"`
	Parks          map[string]Park         `json:"parks"`
	Streets        map[string]Street       `json:"streets"`
}

// Bucket names used by the snapshotting backends, one row or object per bucket.
const (
	BucketTrees          = "trees"
	BucketLocations      = "locations"
	BucketSpecies        = "species"
	BucketMunicipalities = "municipalities"
	BucketUsers          = "users"
	BucketStatuses       = "statuses"
	BucketParks          = "parks"
	BucketStreets        = "streets"
)

// BucketNames lists every persisted bucket in a stable order.
func BucketNames() []string {
	return []string{
		BucketTrees,
		BucketLocations,
		BucketSpecies,
		BucketMunicipalities,
		BucketUsers,
		BucketStatuses,
		BucketParks,
		BucketStreets,
	}
}

func (s *Snapshot) bucket(name string) (any, bool) {
	switch name {
	case BucketTrees:
		return &s.Trees, true
	case BucketLocations:
		return &s.Locations, true
	case BucketSpecies:
		return &s.Species, true
	case BucketMunicipalities:
		return &s.Municipalities, true
	case BucketUsers:
		return &s.Users, true
	case BucketStatuses:
		return &s.Statuses, true
	case BucketParks:
		return &s.Parks, true
	case BucketStreets:
		return &s.Streets, true
	}
	return nil, false
}

// EncodeBuckets marshals each bucket of the snapshot to JSON.
func (s Snapshot) EncodeBuckets() (map[string][]byte, error) {
	out := make(map[string][]byte, len(BucketNames()))
	for _, name := range BucketNames() {
		target, _ := s.bucket(name)
		data, err := json.Marshal(target)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// DecodeBuckets rebuilds a snapshot from per-bucket JSON payloads. Unknown
// buckets are ignored so older tables with extra rows still load.
func DecodeBuckets(payloads map[string][]byte) (Snapshot, error) {
	var snapshot Snapshot
	for name, payload := range payloads {
		target, ok := snapshot.bucket(name)
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return snapshot, nil
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Trees:          make(map[string]Tree, len(state.trees)),
		Locations:      make(map[string]TreeLocation, len(state.locations)),
		Species:        make(map[string]Species, len(state.species)),
		Municipalities: make(map[string]Municipality, len(state.municipalities)),
		Users:          make(map[string]User, len(state.users)),
		Statuses:       make(map[string]TreeStatus, len(state.statuses)),
		Parks:          make(map[string]Park, len(state.parks)),
		Streets:        make(map[string]Street, len(state.streets)),
	}
	for k, v := range state.trees {
		s.Trees[k] = cloneTree(v)
	}
	for k, v := range state.locations {
		s.Locations[k] = v
	}
	for k, v := range state.species {
		s.Species[k] = v
	}
	for k, v := range state.municipalities {
		s.Municipalities[k] = v
	}
	for k, v := range state.users {
		s.Users[k] = v
	}
	for k, v := range state.statuses {
		s.Statuses[k] = v
	}
	for k, v := range state.parks {
		s.Parks[k] = v
	}
	for k, v := range state.streets {
		s.Streets[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Trees {
		state.trees[k] = cloneTree(v)
	}
	for k, v := range s.Locations {
		state.locations[k] = v
	}
	for k, v := range s.Species {
		state.species[k] = v
	}
	for k, v := range s.Municipalities {
		state.municipalities[k] = v
	}
	for k, v := range s.Users {
		state.users[k] = v
	}
	for k, v := range s.Statuses {
		state.statuses[k] = v
	}
	for k, v := range s.Parks {
		state.parks[k] = v
	}
	for k, v := range s.Streets {
		state.streets[k] = v
	}
	return state
}

// migrateSnapshot initialises missing buckets and drops records whose
// references no longer resolve.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Trees == nil {
		snapshot.Trees = map[string]Tree{}
	}
	if snapshot.Locations == nil {
		snapshot.Locations = map[string]TreeLocation{}
	}
	if snapshot.Species == nil {
		snapshot.Species = map[string]Species{}
	}
	if snapshot.Municipalities == nil {
		snapshot.Municipalities = map[string]Municipality{}
	}
	if snapshot.Users == nil {
		snapshot.Users = map[string]User{}
	}
	if snapshot.Statuses == nil {
		snapshot.Statuses = map[string]TreeStatus{}
	}
	if snapshot.Parks == nil {
		snapshot.Parks = map[string]Park{}
	}
	if snapshot.Streets == nil {
		snapshot.Streets = map[string]Street{}
	}

	for id, loc := range snapshot.Locations {
		if _, ok := snapshot.Trees[loc.TreeID]; !ok {
			delete(snapshot.Locations, id)
		}
	}
	for id, tree := range snapshot.Trees {
		if tree.LocationID == nil {
			continue
		}
		if _, ok := snapshot.Locations[*tree.LocationID]; !ok {
			tree.LocationID = nil
			snapshot.Trees[id] = tree
		}
	}
	return snapshot
}
