// state/interfaces.go
package state

// RoomContext is the part of a room its status states need. It keeps state
// free of an import on room.
type RoomContext interface {
	GetID() int64
	Broadcast(msgID uint16, data []byte) error
}
