package service

import (
	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
)

func incrementUsersRegistered() {
	metrics.UsersRegisteredTotal.Inc()
}

func incrementUsersDeleted() {
	metrics.UsersDeletedTotal.Inc()
}
