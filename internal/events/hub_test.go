package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitUntil(t *testing.T, timeout time.Duration, check func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return check()
}

func registerTestClient(t *testing.T, hub *Hub, userID uuid.UUID, buffer int) *Client {
	t.Helper()
	client := &Client{
		UserID: userID,
		hub:    hub,
		send:   make(chan []byte, buffer),
	}
	hub.register <- client
	if !waitUntil(t, time.Second, func() bool { return hub.IsOnline(userID) }) {
		t.Fatalf("expected user %s online after register", userID)
	}
	return client
}

func receiveEvent(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case raw := <-client.send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("failed decoding event: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return Message{}
	}
}

func TestHubDeliversToUserConnections(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	other := uuid.New()

	first := registerTestClient(t, hub, userID, 8)
	second := registerTestClient(t, hub, userID, 8)
	bystander := registerTestClient(t, hub, other, 8)

	hub.PublishToUser(userID, &Message{Event: "friend_request_received", Data: "hello"})

	for _, client := range []*Client{first, second} {
		msg := receiveEvent(t, client)
		if msg.Event != "friend_request_received" {
			t.Fatalf("expected friend_request_received, got %q", msg.Event)
		}
	}
	if len(bystander.send) != 0 {
		t.Fatalf("expected no delivery to unrelated user")
	}
}

func TestHubFansOutToMultipleUsers(t *testing.T) {
	hub := NewHub()
	sender := uuid.New()
	receiver := uuid.New()

	senderClient := registerTestClient(t, hub, sender, 8)
	receiverClient := registerTestClient(t, hub, receiver, 8)

	hub.PublishToUsers([]uuid.UUID{sender, receiver}, &Message{Event: "friend_request_accepted"})

	for _, client := range []*Client{senderClient, receiverClient} {
		msg := receiveEvent(t, client)
		if msg.Event != "friend_request_accepted" {
			t.Fatalf("expected friend_request_accepted, got %q", msg.Event)
		}
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	client := registerTestClient(t, hub, userID, 8)

	hub.unregister <- client
	if !waitUntil(t, time.Second, func() bool { return !hub.IsOnline(userID) }) {
		t.Fatalf("expected user offline after unregister")
	}

	select {
	case _, ok := <-client.send:
		if ok {
			t.Fatalf("expected send channel closed, got a message")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected send channel to be closed")
	}

	// Publishing to a departed user must not panic or block.
	hub.PublishToUser(userID, &Message{Event: "friend_removed"})
}

func TestHubDropsEventsForSlowConsumer(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	client := registerTestClient(t, hub, userID, 1)

	done := make(chan struct{})
	go func() {
		hub.PublishToUser(userID, &Message{Event: "first"})
		hub.PublishToUser(userID, &Message{Event: "second"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full send buffer")
	}

	if len(client.send) != 1 {
		t.Fatalf("expected overflow event dropped, got %d buffered", len(client.send))
	}
	msg := receiveEvent(t, client)
	if msg.Event != "first" {
		t.Fatalf("expected the first event retained, got %q", msg.Event)
	}
}
