package worker

import (
	"github.com/ciepi/portal-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// portal event stream.
func StartNotificationWorker(notifications *service.NotificationService) {
	if notifications == nil {
		return
	}
	notifications.RegisterHandlers()
}
