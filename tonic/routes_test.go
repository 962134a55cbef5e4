package tonic

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/G-Node/tonicforms/tonic/db"
	"github.com/G-Node/tonicforms/tonic/form"
	"github.com/G-Node/tonicforms/tonic/store"
	"github.com/google/go-cmp/cmp"
)

var testSchema = form.Schema{
	{ID: "name", Type: "text", Label: "Name"},
	{ID: "notes", Type: "textarea", Label: "Notes"},
}

// newTestService creates a service with a database in a temporary directory
// that is removed with the test.
func newTestService(t *testing.T, schema form.Schema, pre PreAction, config Config) *Tonic {
	dir, err := ioutil.TempDir("", "tonic-test")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %s", err.Error())
	}
	config.DBPath = filepath.Join(dir, "tonic.db")
	if config.ProgressFile != "" {
		config.ProgressFile = filepath.Join(dir, config.ProgressFile)
	}
	srv, err := NewService(schema, pre, echoAction, config)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("Failed to initialise tonic service: %s", err.Error())
	}
	t.Cleanup(func() {
		srv.db.Close()
		if srv.progress != nil {
			srv.progress.Close()
		}
		os.RemoveAll(dir)
	})
	return srv
}

func testSession(t *testing.T, srv *Tonic, userID int64) *db.Session {
	sess := db.NewSession("test-token", userID)
	sess.UserName = fmt.Sprintf("user%d", userID)
	if err := srv.db.InsertSession(sess); err != nil {
		t.Fatalf("Failed to insert session: %s", err.Error())
	}
	return sess
}

func request(t *testing.T, srv *Tonic, sess *db.Session, method, route string, values url.Values) *httptest.ResponseRecorder {
	body := ""
	if values != nil {
		body = values.Encode()
	}
	req, err := http.NewRequest(method, route, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %s %s", method, route)
	}
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sess != nil {
		req.AddCookie(&http.Cookie{Name: srv.Config.CookieName, Value: sess.ID})
	}
	rr := httptest.NewRecorder()
	srv.web.Handler.ServeHTTP(rr, req)
	return rr
}

func checkStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if status := rr.Code; status != expected {
		t.Fatalf("handler returned wrong status code: got %v expected %v\n%s", status, expected, rr.Body.String())
	}
}

func TestLoginRedirect(t *testing.T) {
	srv := newTestService(t, testSchema, nil, Config{CookieName: "test-cookie"})
	handler := srv.web.Handler

	checkStatusNoCookie := func(method, route string) {
		rr := httptest.NewRecorder()
		req, err := http.NewRequest(method, route, nil)
		if err != nil {
			t.Errorf("failed to create request: %s %s", method, route)
		}
		handler.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusFound {
			t.Errorf("handler returned wrong status code: got %v expected %v", status, http.StatusFound)
		}
	}

	checkStatusNoCookie("GET", "/")
	checkStatusNoCookie("POST", "/")
	checkStatusNoCookie("POST", "/save")
	checkStatusNoCookie("GET", "/log")
	checkStatusNoCookie("GET", "/log/42")
	checkStatusNoCookie("GET", "/logout")

	checkStatusBadCookie := func(method, route string) {
		rr := httptest.NewRecorder()
		req, err := http.NewRequest(method, route, nil)
		if err != nil {
			t.Errorf("failed to create request: %s %s", method, route)
		}
		req.Header.Add("Cookie", "test-cookie=bad")
		handler.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusFound {
			t.Errorf("handler returned wrong status code: got %v expected %v", status, http.StatusFound)
		}
	}

	checkStatusBadCookie("GET", "/")
	checkStatusBadCookie("POST", "/")
	checkStatusBadCookie("GET", "/log")
	checkStatusBadCookie("GET", "/log/42")
	checkStatusBadCookie("GET", "/log/1337")
}

func TestExpiredSession(t *testing.T) {
	srv := newTestService(t, testSchema, nil, Config{})
	sess := db.NewSession("test-token", 7)
	sess.Created = time.Now().Add(-2 * srv.Config.SessionAge)
	if err := srv.db.InsertSession(sess); err != nil {
		t.Fatalf("Failed to insert session: %s", err.Error())
	}

	rr := request(t, srv, sess, "GET", "/", nil)
	checkStatus(t, rr, http.StatusFound)
	if _, err := srv.db.GetSession(sess.ID); err == nil {
		t.Fatal("Expired session not deleted")
	}
}

func TestLoginPage(t *testing.T) {
	srv := newTestService(t, testSchema, nil, Config{})
	rr := request(t, srv, nil, "GET", "/login", nil)
	checkStatus(t, rr, http.StatusOK)
	body := rr.Body.String()
	if !strings.Contains(body, `name="password"`) {
		t.Fatal("Login page has no password input")
	}
	if strings.Contains(body, "Sign out") || strings.Contains(body, loginFailed) {
		t.Fatal("Login page shows sign out link or failure message")
	}
	if !strings.Contains(body, "<title>Sign in - Tonic</title>") {
		t.Fatal("Login page title not set")
	}

	rr = request(t, srv, nil, "POST", "/login", url.Values{"username": {"ada"}})
	checkStatus(t, rr, http.StatusUnauthorized)
	body = rr.Body.String()
	if !strings.Contains(body, loginFailed) {
		t.Fatalf("Failed login has no message: %s", body)
	}
	if !strings.Contains(body, `value="ada"`) {
		t.Fatal("Failed login did not keep the username")
	}
}

func TestLoginPost(t *testing.T) {
	gin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/tokens"):
			fmt.Fprint(w, `[{"name": "tonic", "sha1": "0123abcd"}]`)
		case strings.HasSuffix(r.URL.Path, "/user"):
			fmt.Fprint(w, `{"id": 17, "login": "ada", "username": "ada"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer gin.Close()

	srv := newTestService(t, testSchema, nil, Config{GIN: GINConfig{Web: gin.URL}})
	rr := request(t, srv, nil, "POST", "/login", url.Values{"username": {"ada"}, "password": {"secret"}})
	checkStatus(t, rr, http.StatusFound)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != srv.Config.CookieName {
		t.Fatalf("Expected session cookie; got %v", cookies)
	}
	sess, err := srv.db.GetSession(cookies[0].Value)
	if err != nil {
		t.Fatalf("Failed to get session: %s", err.Error())
	}
	if sess.UserID != 17 || sess.Token != "0123abcd" {
		t.Fatalf("Unexpected session %+v", sess)
	}

	rr = request(t, srv, sess, "GET", "/logout", nil)
	checkStatus(t, rr, http.StatusFound)
	if _, err := srv.db.GetSession(sess.ID); err == nil {
		t.Fatal("Session not deleted on logout")
	}
}

func TestFormRoutes(t *testing.T) {
	srv := newTestService(t, testSchema, nil, Config{})
	sess := testSession(t, srv, 198)

	// Load the form
	rr := request(t, srv, sess, "GET", "/", nil)
	checkStatus(t, rr, http.StatusOK)
	page := rr.Body.String()
	for _, expected := range []string{`id="tonic"`, `name="name"`, `name="submit"`, `href="/logout"`} {
		if !strings.Contains(page, expected) {
			t.Fatalf("Form page does not contain %s", expected)
		}
	}

	// Send empty data to the form
	rr = request(t, srv, sess, "POST", "/", url.Values{})
	checkStatus(t, rr, http.StatusSeeOther)

	rr = request(t, srv, sess, "POST", "/", url.Values{"name": {"Ada"}, "notes": {"first"}, "submit": {"submit"}})
	checkStatus(t, rr, http.StatusSeeOther)

	jobs, err := srv.db.GetUserJobs(sess.UserID)
	if err != nil {
		t.Fatalf("Failed to get jobs: %s", err.Error())
	}
	if len(jobs) != 2 {
		t.Fatalf("Expected 2 jobs; got %d", len(jobs))
	}
	// newest first
	if jobs[0].Label != "Ada" {
		t.Fatalf("Unexpected job label %q", jobs[0].Label)
	}
	expected := map[string][]string{"name": {"Ada"}, "notes": {"first"}}
	if diff := cmp.Diff(expected, jobs[0].ValueMap); diff != "" {
		t.Fatalf("Job values mismatch (-expected +got):\n%s", diff)
	}
}

func TestFormInvalid(t *testing.T) {
	schema := form.Schema{
		{ID: "name", Type: "text", Required: form.Static(true)},
		{ID: "go", Type: "submit", Label: "Go"},
	}
	srv := newTestService(t, schema, nil, Config{})
	sess := testSession(t, srv, 3)

	rr := request(t, srv, sess, "GET", "/", nil)
	checkStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), `name="submit"`) {
		t.Fatal("Default submit button added to a form with a submit button")
	}

	rr = request(t, srv, sess, "POST", "/", url.Values{"go": {"submit"}})
	checkStatus(t, rr, http.StatusUnprocessableEntity)
	if !strings.Contains(rr.Body.String(), "Please correct the marked fields.") {
		t.Fatal("Invalid form page has no error message")
	}
	if jobs, _ := srv.db.GetUserJobs(sess.UserID); len(jobs) != 0 {
		t.Fatalf("Invalid form submitted %d jobs", len(jobs))
	}
}

func TestSaveProgress(t *testing.T) {
	schema := form.Schema{
		{ID: "name", Type: "text"},
		{ID: "keep", Type: "save", Label: "Save"},
	}
	srv := newTestService(t, schema, nil, Config{SaveProgress: true})
	sess := testSession(t, srv, 5)
	other := testSession(t, srv, 6)

	rr := request(t, srv, sess, "POST", "/save", url.Values{"name": {"Ada"}})
	checkStatus(t, rr, http.StatusSeeOther)

	rr = request(t, srv, sess, "GET", "/", nil)
	checkStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `value="Ada"`) {
		t.Fatal("Saved value not restored")
	}
	rr = request(t, srv, other, "GET", "/", nil)
	if strings.Contains(rr.Body.String(), `value="Ada"`) {
		t.Fatal("Saved value shown to another session")
	}

	// save button in the form
	rr = request(t, srv, sess, "POST", "/", url.Values{"name": {"Grace"}, "keep": {"save"}})
	checkStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "Progress saved") {
		t.Fatal("Save button did not report saving")
	}
	if n, _ := srv.db.ProgressStore(sess.ID).Items(); n != 1 {
		t.Fatalf("Expected one saved item; got %d", n)
	}

	// submitting clears the progress
	rr = request(t, srv, sess, "POST", "/", url.Values{"name": {"Grace"}, "submit": {"submit"}})
	checkStatus(t, rr, http.StatusSeeOther)
	if n, _ := srv.db.ProgressStore(sess.ID).Items(); n != 0 {
		t.Fatalf("Expected saved progress to be cleared after submit; got %d items", n)
	}
}

func TestProgressFile(t *testing.T) {
	srv := newTestService(t, testSchema, nil, Config{SaveProgress: true, ProgressFile: "progress.db"})
	if srv.progress == nil {
		t.Fatal("Progress file not opened")
	}
	sess := testSession(t, srv, 5)
	other := testSession(t, srv, 6)

	rr := request(t, srv, sess, "POST", "/save", url.Values{"name": {"Ada"}})
	checkStatus(t, rr, http.StatusSeeOther)
	request(t, srv, other, "POST", "/save", url.Values{"name": {"Grace"}})

	if n, _ := srv.db.ProgressStore(sess.ID).Items(); n != 0 {
		t.Fatalf("Progress written to the database instead of the file: %d items", n)
	}
	keys, err := srv.progress.Keys(sess.ID + ":")
	if err != nil {
		t.Fatalf("Failed to list saved keys: %s", err.Error())
	}
	if diff := cmp.Diff([]string{sess.ID + ":" + form.StorageKey(FormID, "name"), sess.ID + ":" + form.StorageKey(FormID, "notes")}, keys); diff != "" {
		t.Fatalf("Saved keys mismatch (-expected +got):\n%s", diff)
	}
	rr = request(t, srv, sess, "GET", "/", nil)
	if !strings.Contains(rr.Body.String(), `value="Ada"`) {
		t.Fatal("Saved value not restored from the progress file")
	}

	rr = request(t, srv, sess, "GET", "/logout", nil)
	checkStatus(t, rr, http.StatusFound)
	if keys, _ := srv.progress.Keys(sess.ID + ":"); len(keys) != 0 {
		t.Fatalf("Progress kept after logout: %v", keys)
	}
	if keys, _ := srv.progress.Keys(other.ID + ":"); len(keys) == 0 {
		t.Fatal("Logout removed the progress of another session")
	}
}

func TestPurgeExpiredProgress(t *testing.T) {
	srv := newTestService(t, testSchema, nil, Config{SaveProgress: true, ProgressFile: "progress.db", SessionAge: time.Hour})
	old := db.NewSession("old-token", 5)
	old.Created = time.Now().Add(-2 * time.Hour)
	if err := srv.db.InsertSession(old); err != nil {
		t.Fatalf("Failed to insert session: %s", err.Error())
	}
	if err := store.Scope(srv.progress, old.ID+":").SetItem(form.StorageKey(FormID, "name"), `"Ada"`); err != nil {
		t.Fatalf("Failed to save progress: %s", err.Error())
	}
	fresh := testSession(t, srv, 6)
	rr := request(t, srv, fresh, "POST", "/save", url.Values{"name": {"Grace"}})
	checkStatus(t, rr, http.StatusSeeOther)

	srv.purgeSessions()
	if _, err := srv.db.GetSession(old.ID); err == nil {
		t.Fatal("Expired session not purged")
	}
	if keys, _ := srv.progress.Keys(old.ID + ":"); len(keys) != 0 {
		t.Fatalf("Progress of purged session kept: %v", keys)
	}
	if _, err := srv.db.GetSession(fresh.ID); err != nil {
		t.Fatalf("Fresh session purged: %s", err.Error())
	}
	if keys, _ := srv.progress.Keys(fresh.ID + ":"); len(keys) == 0 {
		t.Fatal("Progress of fresh session removed")
	}
}

func TestListRoutes(t *testing.T) {
	schema := form.Schema{
		{ID: "people", Type: "list", Schema: form.Schema{{ID: "who", Type: "text"}}},
	}
	srv := newTestService(t, schema, nil, Config{})
	sess := testSession(t, srv, 9)

	rr := request(t, srv, sess, "POST", "/", url.Values{"people__keys": {"k1"}, "people__add": {""}})
	checkStatus(t, rr, http.StatusOK)
	if n := strings.Count(rr.Body.String(), `class="tonic-list-row"`); n != 2 {
		t.Fatalf("Expected 2 rows after add; got %d", n)
	}

	values := url.Values{
		"people__keys":  {"k1,k2"},
		"people[k1]who": {"Ada"},
		"people[k2]who": {"Grace"},
		"submit":        {"submit"},
	}
	rr = request(t, srv, sess, "POST", "/", values)
	checkStatus(t, rr, http.StatusSeeOther)

	jobs, err := srv.db.GetUserJobs(sess.UserID)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("Expected one job; got %d (%v)", len(jobs), err)
	}
	expected := map[string][]string{"people[0][who]": {"Ada"}, "people[1][who]": {"Grace"}}
	if diff := cmp.Diff(expected, jobs[0].ValueMap); diff != "" {
		t.Fatalf("Job values mismatch (-expected +got):\n%s", diff)
	}
}

func TestLogRoutes(t *testing.T) {
	srv := newTestService(t, testSchema, nil, Config{CookieName: "test-cookie"})
	handler := srv.web.Handler

	// Add test cookie to the database
	testSession := db.NewSession("test-token", 42)
	srv.db.InsertSession(testSession)

	cookie := testSession.ID

	jobLabel := "TestJob"

	checkLogJobCount := func(route string, nexpected int) {
		rr := httptest.NewRecorder()
		req, err := http.NewRequest("GET", route, nil)
		if err != nil {
			t.Errorf("failed to create request: %s", route)
		}
		req.Header.Add("Cookie", fmt.Sprintf("test-cookie=%s", cookie))
		handler.ServeHTTP(rr, req)
		if status := rr.Code; status != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v expected %v", status, http.StatusOK)
		}

		content, err := ioutil.ReadAll(rr.Body)
		if err != nil {
			t.Errorf("failed to read response body: %s", err.Error())
		}
		if njobs := bytes.Count(content, []byte(jobLabel)); njobs != nexpected {
			t.Errorf("Job log returned %d, expected %d", njobs, nexpected)
		}
	}

	checkLogJobCount("/log", 0)

	srv.db.InsertJob(&db.Job{ID: 12, UserID: 42, Label: jobLabel})
	checkLogJobCount("/log", 1)

	srv.db.InsertJob(&db.Job{ID: 16, UserID: 42, Label: jobLabel})
	checkLogJobCount("/log", 2)

	srv.db.InsertJob(&db.Job{ID: 26, UserID: 44, Label: jobLabel}) // other user
	checkLogJobCount("/log", 2)
}

func TestShowJob(t *testing.T) {
	srv := newTestService(t, testSchema, nil, Config{})
	sess := testSession(t, srv, 42)

	job := &db.Job{UserID: 42, Label: "Visible", ValueMap: map[string][]string{"name": {"Ada"}}, Messages: []string{"created repository"}}
	if err := srv.db.InsertJob(job); err != nil {
		t.Fatalf("Failed to insert job: %s", err.Error())
	}
	foreign := &db.Job{UserID: 44, Label: "Foreign"}
	if err := srv.db.InsertJob(foreign); err != nil {
		t.Fatalf("Failed to insert job: %s", err.Error())
	}

	rr := request(t, srv, sess, "GET", fmt.Sprintf("/log/%d", job.ID), nil)
	checkStatus(t, rr, http.StatusOK)
	for _, expected := range []string{"Visible", "Ada", "created repository"} {
		if !strings.Contains(rr.Body.String(), expected) {
			t.Fatalf("Job page does not contain %q", expected)
		}
	}

	rr = request(t, srv, sess, "GET", fmt.Sprintf("/log/%d", foreign.ID), nil)
	checkStatus(t, rr, http.StatusNotFound)
	rr = request(t, srv, sess, "GET", "/log/1337", nil)
	checkStatus(t, rr, http.StatusNotFound)
}
