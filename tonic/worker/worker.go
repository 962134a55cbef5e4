package worker

import (
	"fmt"
	"io/ioutil"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/G-Node/tonicforms/tonic/db"
)

// PostAction runs a submitted job. It receives the submitted values keyed by
// flattened field name and the clients of the service bot and the submitting
// user. The returned messages are stored with the job.
type PostAction func(values map[string][]string, botClient, userClient *Client) ([]string, error)

// UserJob is a job together with the client of the user who submitted it.
type UserJob struct {
	*db.Job
	client *Client
	done   chan struct{}
}

// NewUserJob returns a job for the given user with the submitted values.
func NewUserJob(client *Client, label string, values map[string][]string) *UserJob {
	j := &UserJob{
		Job:    &db.Job{Label: label, ValueMap: values},
		client: client,
		done:   make(chan struct{}),
	}
	return j
}

// Done is closed when the job has finished.
func (j *UserJob) Done() <-chan struct{} {
	return j.done
}

// Worker pool with queue for running Jobs asynchronously.
type Worker struct {
	queue      chan *UserJob
	stop       chan bool
	wg         sync.WaitGroup
	PostAction PostAction
	db         *db.Connection
	client     *Client
	log        *log.Logger
}

// New returns a worker writing its jobs to dbconn, with a queue of the given
// length.
func New(dbconn *db.Connection, queueLen int) *Worker {
	if queueLen <= 0 {
		queueLen = 100
	}
	w := new(Worker)
	w.queue = make(chan *UserJob, queueLen)
	w.stop = make(chan bool)
	w.db = dbconn
	w.client = NewClient("", "", "")
	w.log = log.New(ioutil.Discard, "", 0)
	return w
}

// SetClient sets the client of the service bot that is passed to every
// action.
func (w *Worker) SetClient(c *Client) {
	w.client = c
}

// SetLogger sets the logger for job messages.
func (w *Worker) SetLogger(l *log.Logger) {
	w.log = l
}

// Enqueue stores the job in the database and adds it to the queue.
func (w *Worker) Enqueue(j *UserJob) error {
	j.SubmitTime = time.Now()
	if j.Label == "" {
		j.Label = defaultLabel(j.ValueMap)
	}
	if j.done == nil {
		j.done = make(chan struct{})
	}
	if err := w.db.InsertJob(j.Job); err != nil {
		w.log.Printf("Error inserting job %+v into db: %v", j.Job, err)
		return err
	}
	select {
	case w.queue <- j:
		return nil
	default:
		j.EndTime = time.Now()
		j.Error = "job queue full"
		w.db.UpdateJob(j.Job)
		close(j.done)
		return fmt.Errorf("job queue full (%d jobs)", cap(w.queue))
	}
}

// defaultLabel picks the first non-empty value in key order.
func defaultLabel(values map[string][]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range values[k] {
			if v != "" {
				return v
			}
		}
	}
	return "job"
}

// Stop stops the worker after the running job has finished. Queued jobs are
// not run.
func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *Worker) run(j *UserJob) {
	defer close(j.done)
	defer func() {
		// Update job entry in db when done
		if err := w.db.UpdateJob(j.Job); err != nil {
			w.log.Printf("Error updating job [J%d]: %v", j.ID, err)
		}
	}()
	w.log.Printf("Starting job [J%d] %q", j.ID, j.Label)
	if w.PostAction == nil {
		j.EndTime = time.Now()
		j.Error = "no job action configured"
		return
	}
	uc := j.client
	if uc == nil {
		uc = NewClient("", "", "")
	}
	msgs, err := w.PostAction(j.ValueMap, w.client, uc)
	j.Messages = msgs
	j.EndTime = time.Now()
	if err == nil {
		w.log.Printf("Job [J%d] %s finished", j.ID, j.Label)
	} else {
		w.log.Printf("Job [J%d] %s failed: %s", j.ID, j.Label, err)
		j.Error = err.Error()
	}
}

// Start runs queued jobs in a goroutine, one at a time.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case job := <-w.queue:
				w.run(job)
			case <-w.stop:
				return
			}
		}
	}()
}
