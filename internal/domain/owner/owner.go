package owner

import "time"

// Owner represents a pet owner, addressed by their Telegram chat ID.
type Owner struct {
	ID         int64
	TelegramID int64
	CreatedAt  time.Time
}
