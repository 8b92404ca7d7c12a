package room

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/mapworld/engine/twmap"
)

var (
	// ErrInvalidEdit is the cause of edits rejected by validation
	ErrInvalidEdit = twmap.ErrInvalidEdit
	// ErrNotFound is the cause of requests naming a room that does not exist
	ErrNotFound = errors.New("room not found")
	// ErrRoomExists is the cause of creating a room under a used name
	ErrRoomExists = errors.New("room already exists")
	// ErrNotInRoom is returned for room requests from peers that joined no room
	ErrNotInRoom = errors.New("not in room")
	// ErrResourceUnavailable is the cause of map load and save failures
	ErrResourceUnavailable = errors.New("map unavailable")
)
