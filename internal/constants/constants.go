package constants

// Session and context keys
const (
	SessionCookieName = "taskpilot_session"
	ContextKeyUserID  = "user_id"
	ContextKeyActor   = "actor"
)

// Validation limits
const (
	MinTitleLength       = 3
	MinDescriptionLength = 10
	MinPasswordLength    = 6
	MinNameLength        = 2
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// PersistedUserKey is the key under which clients persist the current user.
const PersistedUserKey = "taskpilot-user"

// DefaultAvatarURL is assigned to users who sign up without an avatar.
const DefaultAvatarURL = "https://images.unsplash.com/photo-1595411425732-e69c1abe2763?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&w=1080"
