package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const DefaultHeartbeat = 15 * time.Second

// Stream writes sub's messages to w as server-sent events until ctx ends,
// the subscription closes, or a write fails. A comment line is sent every
// heartbeat to keep idle connections open.
func Stream(ctx context.Context, w *bufio.Writer, sub *Subscriber, heartbeat time.Duration) error {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	_, err := fmt.Fprint(w, "retry: 3000\n\n")
	if err != nil {
		return err
	}

	err = w.Flush()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, err = fmt.Fprint(w, ": ping\n\n")
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}

			err = WriteEvent(w, msg)
		}

		if err != nil {
			return err
		}

		err = w.Flush()
		if err != nil {
			return err
		}
	}
}

// WriteEvent encodes one message in the event-stream format.
func WriteEvent(w *bufio.Writer, msg Message) error {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}

	if msg.ID != "" {
		_, err = fmt.Fprintf(w, "id: %s\n", msg.ID)
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data)

	return err
}
