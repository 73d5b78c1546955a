package websocket

import (
	"github.com/google/uuid"
)

type SocketMessageType int

const (
	Update SocketMessageType = iota
	Welcome
)

// SocketMessage is the shape of every message pushed to connected activity
// clients. Target, when set, restricts delivery to the client with the
// matching UUID; a nil Target broadcasts to every connected client.
type SocketMessage struct {
	Title  string                 `json:"title"`
	Body   map[string]interface{} `json:"arguments"`
	Type   SocketMessageType      `json:"type"`
	Target *uuid.UUID             `json:"-"`
}
