package websocket

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type socketClient struct {
	id     *uuid.UUID
	socket *websocket.Conn
}

func (client *socketClient) SendMessage(message *SocketMessage) error {
	return client.socket.WriteJSON(message)
}

// Discard runs a read-loop on the clients websocket connection, dropping
// anything received. The activity socket is push-only; the read-loop exists
// solely to observe the connection closing. The connection error which ended
// the loop is returned, and it is the responsibility of the caller to
// de-register the client at that point.
func (client *socketClient) Discard() error {
	for {
		if _, _, err := client.socket.NextReader(); err != nil {
			return err
		}
	}
}

// Close will close this clients socket
func (client *socketClient) Close() {
	client.socket.Close()
}
