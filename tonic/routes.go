// Common routes and pages
package tonic

import (
	"bytes"
	"html/template"
	"net/http"
	"sort"
	"strconv"

	"github.com/G-Node/tonicforms/templates"
	"github.com/G-Node/tonicforms/tonic/db"
	"github.com/G-Node/tonicforms/tonic/form"
	"github.com/G-Node/tonicforms/tonic/web"
	"github.com/G-Node/tonicforms/tonic/worker"
	"github.com/gogs/go-gogs-client"
	"github.com/gorilla/mux"
)

// FormID is the id of the form node and the prefix of its saved progress.
const FormID = "tonic"

const timefmt = "15:04:05 Mon Jan 2 2006"

// authedHandler is a handler that requires an authenticated user
type authedHandler func(w http.ResponseWriter, r *http.Request, sess *db.Session)

// reqLoginHandler acts as middleware to check if the user is logged in.
// Returns a function that matches 'authedHandler()'.
// Use for pages that require authentication (currently, everything except the login page).
func (srv *Tonic) reqLoginHandler(handler authedHandler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(srv.Config.CookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		sess, err := srv.db.GetSession(cookie.Value)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if sess.Expired(srv.Config.SessionAge) {
			if err := srv.endSession(sess.ID); err != nil {
				srv.log.Printf("Failed to delete expired session: %v", err)
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		handler(w, r, sess)
	}
}

// setupWebRoutes sets up the common routes shared by all instances of the service.
//
// Login, Form, and Job log pages
func (srv *Tonic) setupWebRoutes() {
	router := srv.web.Router
	router.StrictSlash(true)

	router.HandleFunc("/login", srv.renderLoginPage).Methods("GET")
	router.HandleFunc("/login", srv.userLoginPost).Methods("POST")
	router.HandleFunc("/logout", srv.reqLoginHandler(srv.logout)).Methods("GET")

	router.HandleFunc("/", srv.reqLoginHandler(srv.renderForm)).Methods("GET")
	router.HandleFunc("/", srv.reqLoginHandler(srv.processForm)).Methods("POST")
	router.HandleFunc("/save", srv.reqLoginHandler(srv.saveProgress)).Methods("POST")
	router.HandleFunc("/log", srv.reqLoginHandler(srv.renderLog)).Methods("GET")
	router.HandleFunc("/log/{id:[0-9]+}", srv.reqLoginHandler(srv.showJob)).Methods("GET")

	router.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.Dir("./assets"))))
}

func (srv *Tonic) render(w http.ResponseWriter, status int, content string, data interface{}) {
	if err := web.Render(w, status, content, data); err != nil {
		srv.log.Printf("Failed to render page: %v", err)
	}
}

const loginFailed = "Sign in failed. Check your username and password."

func (srv *Tonic) renderLoginPage(w http.ResponseWriter, r *http.Request) {
	srv.render(w, http.StatusOK, templates.Login, map[string]interface{}{})
}

// loginFailure shows the login page again with a message and the entered
// username.
func (srv *Tonic) loginFailure(w http.ResponseWriter, username string) {
	srv.render(w, http.StatusUnauthorized, templates.Login, map[string]interface{}{
		"message":  loginFailed,
		"username": username,
	})
}

func (srv *Tonic) userLoginPost(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		srv.loginFailure(w, username)
		return
	}

	token, err := accessToken(srv.Config.GIN.Web, username, password)
	if err != nil {
		srv.log.Printf("Login of %q failed: %v", username, err)
		srv.loginFailure(w, username)
		return
	}
	user, err := gogs.NewClient(srv.Config.GIN.Web, token).GetSelfInfo()
	if err != nil {
		srv.log.Printf("Failed to get user info of %q: %v", username, err)
		srv.loginFailure(w, username)
		return
	}

	sess := db.NewSession(token, user.ID)
	sess.UserName = user.UserName
	if err := srv.db.InsertSession(sess); err != nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	cookie := http.Cookie{
		Name:     srv.Config.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.Created.Add(srv.Config.SessionAge),
		HttpOnly: true,
	}

	http.SetCookie(w, &cookie)
	// Redirect to form
	http.Redirect(w, r, "/", http.StatusFound)
}

func (srv *Tonic) logout(w http.ResponseWriter, r *http.Request, sess *db.Session) {
	if err := srv.endSession(sess.ID); err != nil {
		srv.log.Printf("Failed to delete session: %v", err)
	}
	http.SetCookie(w, &http.Cookie{Name: srv.Config.CookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (srv *Tonic) userClient(sess *db.Session) *worker.Client {
	return worker.NewClient(srv.Config.GIN.Web, sess.UserName, sess.Token)
}

// withSubmit appends a submit button unless the schema has one at the top
// level.
func withSubmit(schema form.Schema) form.Schema {
	for _, node := range schema {
		if node.Type == form.ActionSubmit || node.Action == form.ActionSubmit {
			return schema
		}
	}
	return append(schema, form.Node{ID: "submit", Type: "submit", Label: "Submit"})
}

// newForm builds the form of a session. Saved progress of the session is
// loaded when the service saves progress.
func (srv *Tonic) newForm(sess *db.Session, submit func(form.Submission) error) (*form.Form, error) {
	schema := append(form.Schema(nil), srv.schema...)
	if srv.preAction != nil {
		custom, err := srv.preAction(schema, srv.botClient, srv.userClient(sess))
		if err != nil {
			return nil, err
		}
		schema = custom
	}
	return form.New(form.NewContainer(), withSubmit(schema), form.Options{
		ID:           FormID,
		Registry:     srv.registry,
		Storage:      srv.progressStore(sess.ID),
		SaveProgress: srv.Config.SaveProgress,
		Encoding:     form.EncodingMultipart,
		OnSubmit:     submit,
		Logger:       srv.log,
		Class:        "ui form",
	})
}

func (srv *Tonic) renderFormPage(w http.ResponseWriter, status int, f *form.Form, message string) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to render form")
		return
	}
	data := make(map[string]interface{})
	data["title"] = srv.Config.Title
	data["description"] = srv.Config.Description
	data["form"] = template.HTML(buf.String())
	data["message"] = message
	data["invalid"] = !f.Valid()
	srv.render(w, status, templates.Form, data)
}

func (srv *Tonic) renderForm(w http.ResponseWriter, r *http.Request, sess *db.Session) {
	f, err := srv.newForm(sess, nil)
	if err != nil {
		srv.log.Printf("Failed to build form: %v", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to build form")
		return
	}
	defer f.Destroy()
	srv.renderFormPage(w, http.StatusOK, f, "")
}

// jobLabel returns the first non-empty text value of a top level field.
func (srv *Tonic) jobLabel(data map[string]interface{}) string {
	for _, node := range srv.schema {
		if s, ok := data[node.ID].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (srv *Tonic) processForm(w http.ResponseWriter, r *http.Request, sess *db.Session) {
	if err := r.ParseForm(); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
		return
	}
	enqueue := func(sub form.Submission) error {
		job := worker.NewUserJob(srv.userClient(sess), srv.jobLabel(sub.Data), sub.Values)
		job.UserID = sess.UserID
		return srv.worker.Enqueue(job)
	}
	f, err := srv.newForm(sess, enqueue)
	if err != nil {
		srv.log.Printf("Failed to build form: %v", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to build form")
		return
	}
	defer f.Destroy()

	if err := f.ApplyValues(r.PostForm); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// buttons other than submit run on the server and show the form again
	if b := f.Pressed(r.PostForm); b != nil && b.Action() != form.ActionSubmit {
		if err := b.Click(); err != nil {
			srv.log.Printf("Button %q failed: %v", b.ID(), err)
			srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to run form action")
			return
		}
		message := ""
		switch b.Action() {
		case form.ActionSave:
			message = "Progress saved"
		case form.ActionReset:
			message = "Form reset"
		}
		srv.renderFormPage(w, http.StatusOK, f, message)
		return
	}

	ok, err := f.Submit()
	if err != nil {
		srv.log.Printf("Failed to submit form: %v", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit job")
		return
	}
	if !ok {
		srv.renderFormPage(w, http.StatusUnprocessableEntity, f, "")
		return
	}
	if srv.Config.SaveProgress {
		// submitted values are no longer progress
		if err := f.Reset(); err != nil {
			srv.log.Printf("Failed to clear saved progress: %v", err)
		}
	}

	// redirect to job log
	http.Redirect(w, r, "/log", http.StatusSeeOther)
}

func (srv *Tonic) saveProgress(w http.ResponseWriter, r *http.Request, sess *db.Session) {
	if err := r.ParseForm(); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
		return
	}
	f, err := srv.newForm(sess, nil)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to build form")
		return
	}
	defer f.Destroy()
	if err := f.ApplyValues(r.PostForm); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := f.Save(); err != nil {
		srv.log.Printf("Failed to save progress: %v", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to save progress")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (srv *Tonic) showJob(w http.ResponseWriter, r *http.Request, sess *db.Session) {
	vars := mux.Vars(r)
	jobid, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusNotFound, "Invalid ID")
		return
	}
	job, err := srv.db.GetJob(jobid)
	if err != nil || job.UserID != sess.UserID {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such job")
		return
	}

	names := make([]string, 0, len(job.ValueMap))
	for name := range job.ValueMap {
		names = append(names, name)
	}
	sort.Strings(names)

	data := make(map[string]interface{})
	data["job"] = job
	data["names"] = names
	data["submit_time"] = job.SubmitTime.Format(timefmt)
	if job.IsFinished() {
		data["end_time"] = job.EndTime.Format(timefmt)
	}
	srv.render(w, http.StatusOK, templates.JobView, data)
}

func (srv *Tonic) renderLog(w http.ResponseWriter, r *http.Request, sess *db.Session) {
	joblog, err := srv.db.GetUserJobs(sess.UserID)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Error reading jobs from DB")
		return
	}
	srv.render(w, http.StatusOK, templates.LogView, joblog)
}

