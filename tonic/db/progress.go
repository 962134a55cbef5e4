package db

// Progress is a saved form value of a session.
type Progress struct {
	ID        int64  `xorm:"pk autoincr"`
	SessionID string `xorm:"unique(item) index"`
	Item      string `xorm:"unique(item)"`
	Value     string `xorm:"text"`
}

// ProgressStore keeps the saved form values of one session. It implements
// form.Storage.
type ProgressStore struct {
	conn    *Connection
	session string
}

// ProgressStore returns the store for the session with the given ID.
func (conn *Connection) ProgressStore(session string) *ProgressStore {
	return &ProgressStore{conn: conn, session: session}
}

// GetItem returns the value saved under key.
func (ps *ProgressStore) GetItem(key string) (string, bool, error) {
	item := new(Progress)
	has, err := ps.conn.engine.Where("session_id = ? AND item = ?", ps.session, key).Get(item)
	if err != nil || !has {
		return "", false, err
	}
	return item.Value, true, nil
}

// SetItem saves value under key, replacing an earlier value.
func (ps *ProgressStore) SetItem(key, value string) error {
	n, err := ps.conn.engine.Where("session_id = ? AND item = ?", ps.session, key).Cols("value").Update(&Progress{Value: value})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = ps.conn.engine.Insert(&Progress{SessionID: ps.session, Item: key, Value: value})
	return err
}

// RemoveItem deletes the value saved under key.
func (ps *ProgressStore) RemoveItem(key string) error {
	_, err := ps.conn.engine.Where("session_id = ? AND item = ?", ps.session, key).Delete(new(Progress))
	return err
}

// Items returns the number of values saved for the session.
func (ps *ProgressStore) Items() (int64, error) {
	return ps.conn.engine.Where("session_id = ?", ps.session).Count(new(Progress))
}
