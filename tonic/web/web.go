package web

import (
	"context"
	"fmt"
	"html/template"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/G-Node/tonicforms/templates"
	"github.com/gorilla/mux"
)

// Server implements the web server for the Tonic service.
type Server struct {
	*http.Server
	Router *mux.Router
	log    *log.Logger
}

// New returns a web Server with an initialised mux.Router and http.Server
// listening on the given port.
func New(port uint16) *Server {
	srv := new(Server)
	srv.Router = new(mux.Router)
	httpsrv := new(http.Server)
	httpsrv.Handler = srv.Router

	httpsrv.Addr = fmt.Sprintf(":%d", port)
	httpsrv.WriteTimeout = time.Second * 15
	httpsrv.ReadTimeout = time.Second * 15
	httpsrv.IdleTimeout = time.Second * 60
	srv.Server = httpsrv
	srv.log = log.New(ioutil.Discard, "", 0)
	return srv
}

// SetLogger sets the logger for server errors.
func (ws *Server) SetLogger(l *log.Logger) {
	ws.log = l
}

// Render executes the named content template inside the site layout.
func Render(w http.ResponseWriter, status int, content string, data interface{}) error {
	tmpl := template.New("layout")
	tmpl, err := tmpl.Parse(templates.Layout)
	if err != nil {
		return err
	}
	tmpl, err = tmpl.Parse(content)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.Execute(w, data)
}

// ErrorResponse logs an error and renders an error page with the given message,
// returning the given status code to the user.
func (ws *Server) ErrorResponse(w http.ResponseWriter, status int, message string) {
	ws.log.Printf("[%d] %s", status, message)
	errinfo := struct {
		StatusCode int
		StatusText string
		Message    string
	}{
		status,
		http.StatusText(status),
		message,
	}
	if err := Render(w, status, templates.Fail, &errinfo); err != nil {
		ws.log.Printf("Error rendering fail page: %v", err)
		w.Write([]byte(message))
	}
}

// Start starts the embedded web server's ListenAndServe method in a goroutine
// and returns.  This method does not block. Use WaitForInterrupt() or
// implement your own blocking function to wait for any other stop condition.
func (ws *Server) Start() {
	go func() {
		if err := ws.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.log.Println(err)
		}
	}()
}

// Stop gracefully stops the web service.
func (ws *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// Gracefully shut down, waiting for the timeout deadline for connections to close.
	if err := ws.Shutdown(ctx); err != nil {
		ws.log.Printf("Error shutting down web server: %v", err)
	}
}
