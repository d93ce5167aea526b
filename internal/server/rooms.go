// Package server manages the room directory, mapping room names to their
// member connection sets.
package server

import "sort"

// RoomStat reports a room's name and current member count for the stats
// surface.
type RoomStat struct {
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
}

// RoomDirectory maps room names to member connection sets. Rooms are created
// on first join and deleted the moment their member set empties. It performs
// no locking of its own; ChatState serializes all access.
type RoomDirectory struct {
	rooms map[string]map[string]struct{}
}

// NewRoomDirectory creates an empty room directory.
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[string]map[string]struct{})}
}

// AddMember adds a connection to a room, creating the room if absent.
func (d *RoomDirectory) AddMember(room, connID string) {
	members, ok := d.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		d.rooms[room] = members
	}
	members[connID] = struct{}{}
}

// RemoveMember removes a connection from a room and deletes the room if the
// member set becomes empty. Unknown rooms and members are no-ops.
func (d *RoomDirectory) RemoveMember(room, connID string) {
	members, ok := d.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(d.rooms, room)
	}
}

// DeleteIfEmpty removes a room whose member set is empty. Occupied and
// unknown rooms are left alone; it reports whether the room was deleted.
func (d *RoomDirectory) DeleteIfEmpty(room string) bool {
	members, ok := d.rooms[room]
	if !ok || len(members) > 0 {
		return false
	}
	delete(d.rooms, room)
	return true
}

// Members returns the connection ids currently in a room.
func (d *RoomDirectory) Members(room string) []string {
	members := d.rooms[room]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// Exists reports whether a room currently has at least one member.
func (d *RoomDirectory) Exists(room string) bool {
	_, ok := d.rooms[room]
	return ok
}

// AllRooms returns every room with its member count, sorted by name.
func (d *RoomDirectory) AllRooms() []RoomStat {
	stats := make([]RoomStat, 0, len(d.rooms))
	for name, members := range d.rooms {
		stats = append(stats, RoomStat{Name: name, UserCount: len(members)})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Len returns the number of rooms with at least one member.
func (d *RoomDirectory) Len() int {
	return len(d.rooms)
}
