package models

// Роли пользователей
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// ValidRoles список валидных ролей
var ValidRoles = map[string]struct{}{
	RoleUser:       {},
	RoleAdmin:      {},
	RoleSuperAdmin: {},
}

// Типы уведомлений
const (
	NotificationSessionRequest     = "session_request"
	NotificationSessionAccepted    = "session_accepted"
	NotificationSessionDeclined    = "session_declined"
	NotificationSessionCompleted   = "session_completed"
	NotificationSessionCancelled   = "session_cancelled"
	NotificationSessionRescheduled = "session_rescheduled"
	NotificationSessionReminder    = "session_reminder"
	NotificationNewReview          = "new_review"
	NotificationNewMessage         = "new_message"
	NotificationSystem             = "system"
)

// Роли участника внутри конкретной сессии
const (
	SessionRoleMentor  = "mentor"
	SessionRoleStudent = "student"
)
