package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sseTransport reads a text/event-stream response.
type sseTransport struct {
	url     string
	token   string
	httpCli *http.Client
}

func (t *sseTransport) run(ctx context.Context, connected func(), frame func([]byte)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpCli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &APIError{Status: resp.StatusCode, Message: "stream"}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned %d", resp.StatusCode)
	}

	connected()
	return readEvents(resp.Body, frame)
}

// readEvents splits an event stream into frames. data: lines accumulate
// and a blank line dispatches them joined by newlines. Comment lines and the
// event, id and retry fields are skipped. It returns nil when the body ends.
func readEvents(r io.Reader, frame func([]byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1 MB

	var data []string
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			if len(data) > 0 {
				frame([]byte(strings.Join(data, "\n")))
				data = data[:0]
			}

		case strings.HasPrefix(line, ":"):
			// comment

		case line == "data":
			data = append(data, "")

		case strings.HasPrefix(line, "data:"):
			v := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(v, " "))
		}
	}
	return scanner.Err()
}
