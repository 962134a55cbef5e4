package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session holds all the information for a given user Session
type Session struct {
	// Session ID (stored in the cookie)
	ID string `xorm:"pk"`
	// ID of the user on the GIN server
	UserID int64
	// Name of user
	UserName string
	// App Token for user
	Token string
	// Time when the session was created (for expiration)
	Created time.Time
}

// NewSession creates a new session for a user with the given token and a new
// unique ID.
func NewSession(token string, userID int64) *Session {
	sess := new(Session)
	sess.ID = uuid.New().String()
	sess.Token = token
	sess.UserID = userID
	sess.Created = time.Now()
	return sess
}

// Expired reports whether the session is older than maxAge.
func (sess *Session) Expired(maxAge time.Duration) bool {
	return time.Since(sess.Created) > maxAge
}

// InsertSession inserts a new Session into the database.
func (conn *Connection) InsertSession(sess *Session) error {
	_, err := conn.engine.Insert(sess)
	return err
}

// GetSession retrieves a session from the database given its ID.
func (conn *Connection) GetSession(id string) (*Session, error) {
	sess := new(Session)
	if has, err := conn.engine.ID(id).Get(sess); err != nil {
		return nil, err
	} else if !has {
		return nil, fmt.Errorf("session not found")
	}
	return sess, nil
}

// DeleteSession removes a session and its saved form progress.
func (conn *Connection) DeleteSession(id string) error {
	if _, err := conn.engine.Where("session_id = ?", id).Delete(new(Progress)); err != nil {
		return err
	}
	_, err := conn.engine.ID(id).Delete(new(Session))
	return err
}

// PurgeSessions deletes the sessions older than maxAge with their saved
// progress and returns the IDs of the deleted sessions.
func (conn *Connection) PurgeSessions(maxAge time.Duration) ([]string, error) {
	var sessions []Session
	if err := conn.engine.Find(&sessions); err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for _, sess := range sessions {
		if !sess.Expired(maxAge) {
			continue
		}
		if err := conn.DeleteSession(sess.ID); err != nil {
			return ids, err
		}
		ids = append(ids, sess.ID)
	}
	return ids, nil
}
