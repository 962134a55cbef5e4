package db

import (
	"fmt"
	"io"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"xorm.io/xorm"
	"xorm.io/xorm/log"
	"xorm.io/xorm/names"
)

// busyTimeout is how long, in milliseconds, sqlite waits for a lock held by
// another connection. Web handlers and the worker write concurrently.
const busyTimeout = 5000

// tables holds the schema of the service database. New creates or extends the
// tables of an existing file.
var tables = []interface{}{new(Job), new(Session), new(Progress)}

// Connection is the service database: jobs, sessions and the saved form
// progress of each session.
type Connection struct {
	engine *xorm.Engine
}

// Close the database.
func (conn *Connection) Close() error {
	return conn.engine.Close()
}

// dsn adds the connection parameters to a database file path.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", path, sep, busyTimeout)
}

// New returns a database connection for the sqlite db file at the given path.
// If it does not exist it is created.
func New(path string) (*Connection, error) {
	engine, err := xorm.NewEngine("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	engine.Logger().SetLevel(log.LOG_WARNING)
	engine.SetMapper(names.GonicMapper{})

	if err := engine.Sync2(tables...); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to sync database %q: %v", path, err)
	}
	return &Connection{engine}, nil
}

// SetLogOutput writes database warnings to w. With debug set every SQL
// statement is logged as well.
func (conn *Connection) SetLogOutput(w io.Writer, debug bool) {
	logger := log.NewSimpleLogger(w)
	if debug {
		logger.SetLevel(log.LOG_DEBUG)
	} else {
		logger.SetLevel(log.LOG_WARNING)
	}
	conn.engine.SetLogger(logger)
	conn.engine.ShowSQL(debug)
}
