package models

import "time"

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Mood     string `json:"mood,omitempty"`
	Online   bool   `json:"online,omitempty"`
}

type Conversation struct {
	ID           int64     `json:"id"`
	Participants []User    `json:"participants"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Other returns the participant that is not the given user, for rendering
// one-to-one conversation titles. Falls back to the first participant.
func (c Conversation) Other(userID int64) (User, bool) {
	for _, p := range c.Participants {
		if p.ID != userID {
			return p, true
		}
	}
	if len(c.Participants) > 0 {
		return c.Participants[0], true
	}
	return User{}, false
}

type FriendRequest struct {
	ID        int64     `json:"id"`
	From      User      `json:"from"`
	CreatedAt time.Time `json:"created_at"`
}

type Settings struct {
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
	Mood          string `json:"mood"`
}
