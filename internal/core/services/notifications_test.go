package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

func TestNotificationHub_PublishSubscribe(t *testing.T) {
	hub := NewNotificationHub()
	ch, cancel := hub.Subscribe(4)
	defer cancel()

	n := domain.Notification{Type: domain.NotificationNewFile, FilePath: "/in/a.pdf", FileName: "a.pdf"}
	hub.Publish(n)

	select {
	case got := <-ch:
		assert.Equal(t, n, got)
	default:
		t.Fatal("expected notification")
	}
}

func TestNotificationHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewNotificationHub()
	slow, cancelSlow := hub.Subscribe(0)
	defer cancelSlow()
	fast, cancelFast := hub.Subscribe(2)
	defer cancelFast()

	hub.Publish(domain.Notification{FileName: "a.pdf"})
	hub.Publish(domain.Notification{FileName: "b.pdf"})

	assert.Len(t, fast, 2)
	assert.Len(t, slow, 0)
}

func TestNotificationHub_CancelClosesChannel(t *testing.T) {
	hub := NewNotificationHub()
	ch, cancel := hub.Subscribe(1)
	require.Equal(t, 1, hub.SubscriberCount())

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount())

	hub.Publish(domain.Notification{FileName: "after.pdf"})
}
