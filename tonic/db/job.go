package db

import (
	"fmt"
	"time"
)

// Job holds all the information for a given Job.
type Job struct {
	// Job ID (auto)
	ID int64 `xorm:"pk autoincr"`
	// ID of user who submitted the job
	UserID int64 `xorm:"index"`
	// Name/label of the job
	Label string
	// Form values that created the job, flattened to posted field names
	ValueMap map[string][]string `xorm:"text"`
	// Messages returned from the job action
	Messages []string `xorm:"text"`
	// Error message if the job failed
	Error string
	// Time when the job was submitted to the queue
	SubmitTime time.Time
	// Time when the job finished (0 if ongoing)
	EndTime time.Time
}

// InsertJob inserts a new Job into the database.  Upon successful return, the
// Job has a new unique ID.
func (conn *Connection) InsertJob(job *Job) error {
	_, err := conn.engine.Insert(job) // job ID is assigned on insertion
	return err
}

// UpdateJob updates an existing Job entry in the database.
func (conn *Connection) UpdateJob(job *Job) error {
	_, err := conn.engine.ID(job.ID).AllCols().Update(job)
	return err
}

// GetUserJobs retrieves all the Jobs associated with a given UserID, newest
// first.
func (conn *Connection) GetUserJobs(uid int64) ([]Job, error) {
	userjobs := make([]Job, 0)
	if err := conn.engine.Where("user_id = ?", uid).Desc("id").Find(&userjobs); err != nil {
		return nil, err
	}

	return userjobs, nil
}

// IsFinished returns true if the Job has finished (has an EndTime).
func (job Job) IsFinished() bool {
	return !job.EndTime.IsZero()
}

// AllJobs returns all Job entries in the database.
func (conn *Connection) AllJobs() ([]Job, error) {
	alljobs := make([]Job, 0)
	if err := conn.engine.Find(&alljobs); err != nil {
		return nil, err
	}

	return alljobs, nil
}

// GetJob retrieves a Job from the database given its ID.
func (conn *Connection) GetJob(id int64) (*Job, error) {
	job := new(Job)
	if has, err := conn.engine.ID(id).Get(job); err != nil {
		return nil, err
	} else if !has {
		return nil, fmt.Errorf("job %d not found", id)
	}
	return job, nil
}
