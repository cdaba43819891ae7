package client

import (
	"context"
	"net/http"

	"nhooyr.io/websocket"
)

// wsTransport reads one frame per WebSocket message.
type wsTransport struct {
	url     string
	token   string
	httpCli *http.Client
}

func (t *wsTransport) run(ctx context.Context, connected func(), frame func([]byte)) error {
	header := http.Header{}
	if t.token != "" {
		header.Set("Authorization", "Bearer "+t.token)
	}
	conn, resp, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{
		HTTPClient: t.httpCli,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return &APIError{Status: resp.StatusCode, Message: "stream"}
		}
		return err
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	conn.SetReadLimit(1024 * 1024)

	connected()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		frame(data)
	}
}
