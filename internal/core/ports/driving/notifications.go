package driving

import "github.com/custodia-labs/leasequery/internal/core/domain"

// NotificationService fans out new-file notifications to in-process subscribers.
type NotificationService interface {
	// Publish delivers a notification to every subscriber without blocking.
	Publish(n domain.Notification)

	// Subscribe returns a channel of notifications and a cancel function
	// that unsubscribes and closes the channel.
	Subscribe(buffer int) (<-chan domain.Notification, func())
}
