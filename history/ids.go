package history

import "github.com/google/uuid"

// Prefixed ids keep conversation, user and message keys recognizable in
// logs and in the /history listing.

// NewChatID returns a fresh conversation/thread identifier.
func NewChatID() string { return "chat_" + uuid.NewString() }

// NewUserID returns a fresh user identifier.
func NewUserID() string { return "user_" + uuid.NewString() }

// NewMessageID returns a fresh message identifier.
func NewMessageID() string { return "msg_" + uuid.NewString() }
