package tonic

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/G-Node/tonicforms/tonic/db"
	"github.com/G-Node/tonicforms/tonic/form"
	"github.com/G-Node/tonicforms/tonic/store"
	"github.com/G-Node/tonicforms/tonic/web"
	"github.com/G-Node/tonicforms/tonic/worker"
	"github.com/gogs/go-gogs-client"
)

// GINConfig holds the address of the GIN server and the credentials of the
// bot user that represents the service.
type GINConfig struct {
	Web      string `yaml:"web"`
	Git      string `yaml:"git"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config containing all the configuration values for a service.
type Config struct {
	GIN        GINConfig `yaml:"gin"`
	Port       uint16    `yaml:"port"`
	CookieName string    `yaml:"cookiename"`
	DBPath     string    `yaml:"dbpath"`
	// Title and Description of the form page.
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	// SaveProgress keeps unsubmitted form values per session.
	SaveProgress bool `yaml:"saveprogress"`
	// ProgressFile moves saved progress from the database to a separate
	// bbolt file.
	ProgressFile string `yaml:"progressfile"`
	// SessionAge is the time after which users have to log in again.
	SessionAge  time.Duration `yaml:"sessionage"`
	QueueLength int           `yaml:"queuelength"`
}

func (c Config) withDefaults() Config {
	if c.CookieName == "" {
		c.CookieName = "utonic"
	}
	if c.Port == 0 {
		c.Port = 3000
	}
	if c.DBPath == "" {
		c.DBPath = "./tonic.db"
	}
	if c.Title == "" {
		c.Title = "Tonic"
	}
	if c.SessionAge == 0 {
		c.SessionAge = 7 * 24 * time.Hour
	}
	return c
}

// PreAction customises the form schema for a user before it is shown, for
// example to fill select options with data from the GIN server.
type PreAction func(schema form.Schema, botClient, userClient *worker.Client) (form.Schema, error)

// Tonic represents a full service which contains a web server, a database for
// jobs, sessions and saved progress, and a worker pool that runs the jobs.
type Tonic struct {
	web       *web.Server
	db        *db.Connection
	progress  *store.Bolt
	worker    *worker.Worker
	log       *log.Logger
	registry  *form.Registry
	schema    form.Schema
	preAction PreAction
	botClient *worker.Client
	Config    *Config
}

// NewService creates a new Tonic with a given form schema and custom job
// actions. The pre action may be nil.
func NewService(schema form.Schema, pre PreAction, post worker.PostAction, config Config) (*Tonic, error) {
	config = config.withDefaults()
	srv := new(Tonic)
	srv.Config = &config
	srv.log = log.New(ioutil.Discard, "", 0)
	srv.registry = form.NewRegistry()

	// DB
	srv.log.Print("Initialising database")
	conn, err := db.New(config.DBPath)
	if err != nil {
		return nil, err
	}
	srv.db = conn
	if config.ProgressFile != "" {
		srv.log.Print("Opening progress file")
		progress, err := store.OpenBolt(config.ProgressFile)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to open progress file %q: %v", config.ProgressFile, err)
		}
		srv.progress = progress
	}

	// Worker
	srv.worker = worker.New(srv.db, config.QueueLength)
	srv.botClient = worker.NewClient(config.GIN.Web, "", "")

	// Web server
	srv.web = web.New(config.Port)
	srv.setupWebRoutes()

	// set form and funcs
	srv.SetSchema(schema)
	srv.SetPreAction(pre)
	srv.SetPostAction(post)

	return srv, nil
}

// login to configured GIN server as the bot user that represents this service
// and attach a new authenticated client to the worker.
func (srv *Tonic) login() error {
	gin := srv.Config.GIN
	if gin.Web == "" || gin.Username == "" {
		return fmt.Errorf("no GIN server or bot user configured")
	}
	token, err := accessToken(gin.Web, gin.Username, gin.Password)
	if err != nil {
		return err
	}
	srv.botClient = worker.NewClient(gin.Web, gin.Username, token)
	srv.worker.SetClient(srv.botClient)
	return nil
}

// accessToken returns an existing access token of the user or creates a new
// one.
func accessToken(server, username, password string) (string, error) {
	client := gogs.NewClient(server, "")
	tokens, err := client.ListAccessTokens(username, password)
	if err != nil {
		return "", err
	}
	if len(tokens) > 0 {
		return tokens[0].Sha1, nil
	}
	token, err := client.CreateAccessToken(username, password, gogs.CreateAccessTokenOption{Name: "tonic"})
	if err != nil {
		return "", err
	}
	return token.Sha1, nil
}

// Start the service (worker and web server).
func (srv *Tonic) Start() error {
	if len(srv.schema) == 0 {
		return fmt.Errorf("nil or empty form is invalid")
	}
	if srv.worker.PostAction == nil {
		return fmt.Errorf("nil job function is invalid")
	}

	srv.purgeSessions()

	srv.log.Print("Starting worker")
	srv.worker.Start()
	srv.log.Print("Worker started")

	srv.log.Print("Starting web service")
	srv.web.Start()
	srv.log.Print("Web server started")

	srv.log.Print("Logging in to gin")
	if err := srv.login(); err != nil {
		srv.log.Printf("Bot login failed: %v", err)
	} else {
		srv.log.Printf("Logged in and ready")
	}
	return nil
}

// WaitForInterrupt blocks until the service receives an interrupt signal (SIGINT).
func (srv *Tonic) WaitForInterrupt() {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, os.Interrupt)
	<-sigchan
}

// Stop the service by gracefully shutting down the web service, stopping the
// worker pool, and closing the database connection, in that order.
func (srv *Tonic) Stop() {
	srv.log.Print("Stopping web service")
	srv.web.Stop()

	srv.log.Print("Stopping worker queue")
	srv.worker.Stop()

	srv.log.Print("Closing database connection")
	if err := srv.db.Close(); err != nil {
		srv.log.Printf("Error closing database: %v", err)
	}
	if srv.progress != nil {
		if err := srv.progress.Close(); err != nil {
			srv.log.Printf("Error closing progress file: %v", err)
		}
	}
	srv.log.Print("Service stopped")
}

// progressStore returns the storage for the saved form values of a session.
func (srv *Tonic) progressStore(sessionID string) form.Storage {
	if srv.progress != nil {
		return store.Scope(srv.progress, sessionID+":")
	}
	return srv.db.ProgressStore(sessionID)
}

// endSession deletes a session together with its saved progress.
func (srv *Tonic) endSession(sessionID string) error {
	if srv.progress != nil {
		if err := store.Scope(srv.progress, sessionID+":").Clear(); err != nil {
			return err
		}
	}
	return srv.db.DeleteSession(sessionID)
}

// purgeSessions removes sessions that expired while the service was down,
// together with their saved progress.
func (srv *Tonic) purgeSessions() {
	ids, err := srv.db.PurgeSessions(srv.Config.SessionAge)
	if err != nil {
		srv.log.Printf("Failed to purge expired sessions: %v", err)
	}
	if srv.progress != nil {
		for _, id := range ids {
			if err := store.Scope(srv.progress, id+":").Clear(); err != nil {
				srv.log.Printf("Failed to clear progress of session %s: %v", id, err)
			}
		}
	}
	if len(ids) > 0 {
		srv.log.Printf("Purged %d expired sessions", len(ids))
	}
}

// SetLogger sets the logger of the service, its web server, worker and forms.
func (srv *Tonic) SetLogger(logger *log.Logger) {
	srv.log = logger
	srv.db.SetLogOutput(logger.Writer(), false)
	srv.web.SetLogger(logger)
	srv.worker.SetLogger(logger)
}

// Registry returns the element registry used for the service's forms. Custom
// element types are registered here.
func (srv *Tonic) Registry() *form.Registry {
	return srv.registry
}

// SetSchema can be used to set or override the form schema for the service.
func (srv *Tonic) SetSchema(schema form.Schema) {
	srv.schema = make(form.Schema, len(schema))
	copy(srv.schema, schema)
}

// SetPreAction can be used to set or override the action that customises the
// form for each user.
func (srv *Tonic) SetPreAction(f PreAction) {
	srv.preAction = f
}

// SetPostAction can be used to set or override the custom job action for the service.
func (srv *Tonic) SetPostAction(f worker.PostAction) {
	srv.worker.PostAction = f
}
