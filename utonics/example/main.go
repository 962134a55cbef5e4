package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/G-Node/tonicforms/tonic"
	"github.com/G-Node/tonicforms/tonic/form"
	"github.com/G-Node/tonicforms/tonic/worker"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// exampleSchema shows one of each element type supported by Tonic and the
// condition syntax for visibility and required rules.
const exampleSchema = `
- id: pages
  type: tabs
  schema:
    - id: job
      type: tab
      label: Job
      schema:
        - id: name
          type: text
          label: Name
          required: true
          minLength: 2
        - id: description
          type: textarea
          label: Description
        - id: duration
          type: number
          label: Duration
          description: Seconds to wait before finishing the job.  Use for simulating long-running jobs.
          min: 0
          max: 600
        - id: fail
          type: checkbox
          label: Fail the job
        - id: reason
          type: text
          label: Failure message
          visible: fail=true
          required: fail=true
    - id: elements
      type: tab
      label: Elements
      schema:
        - id: contact
          type: group
          label: Contact
          dataKey: contact
          schema:
            - id: emailrow
              type: row
              schema:
                - {id: email, type: email, label: Email}
                - {id: tel, type: tel, label: Phone}
            - {id: homepage, type: url, label: Homepage}
        - id: colour
          type: color
          label: Colour
          default: "#2185d0"
        - {id: day, type: date, label: Day}
        - {id: at, type: time, label: Time}
        - {id: secret, type: password, label: Password}
        - {id: query, type: search, label: Search}
        - {id: level, type: range, label: Level, min: 1, max: 10, default: 5}
        - id: size
          type: select
          label: Size
          options: [small, medium, large]
        - id: sizenote
          type: text
          label: Why large?
          visible: size=large
        - id: flavour
          type: radio
          label: Flavour
          options: [vanilla, chocolate]
        - {id: token, type: hidden, default: example}
    - id: team
      type: tab
      label: People
      schema:
        - id: people
          type: list
          label: People involved
          addLabel: Add person
          maxRows: 5
          schema:
            - {id: who, type: text, label: Name}
            - id: role
              type: select
              label: Role
              options: [author, reviewer, other]
            - id: otherrole
              type: text
              label: Describe the role
              visible: role=other
- {id: keep, type: save, label: Save progress}
- {id: clear, type: reset, label: Start over}
`

func readConfig(filename string) tonic.Config {
	config := tonic.Config{
		CookieName:   "utonic-example",
		DBPath:       "./example.db",
		Title:        "Tonic example form",
		SaveProgress: true,
		ProgressFile: "./example-progress.db",
	}
	if filename == "" {
		return config
	}
	confData, err := ioutil.ReadFile(filename)
	if err != nil {
		log.Fatal(err)
	}
	if err := yaml.Unmarshal(confData, &config); err != nil {
		log.Fatal(err)
	}
	log.Printf("[config] Read configuration from %s", filename)
	return config
}

func main() {
	logger := log.New(os.Stderr, "[example] ", log.LstdFlags)
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		// the service manager adds timestamps
		logger.SetFlags(0)
	}

	schema, err := form.ParseYAML([]byte(exampleSchema))
	if err != nil {
		logger.Fatal(err)
	}
	conffile := ""
	if len(os.Args) > 1 {
		conffile = os.Args[1]
	}
	ut, err := tonic.NewService(schema, nil, exampleFunc, readConfig(conffile))
	if err != nil {
		logger.Fatal(err)
	}
	ut.SetLogger(logger)
	if err := ut.Start(); err != nil {
		logger.Fatal(err)
	}
	defer ut.Stop()
	ut.WaitForInterrupt()
}

func exampleFunc(values map[string][]string, _, _ *worker.Client) ([]string, error) {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names)+2)
	for _, k := range names {
		msgs = append(msgs, fmt.Sprintf("Example function got %s: %q", k, strings.Join(values[k], ", ")))
	}

	if duration := first(values, "duration"); duration != "" {
		d, err := strconv.ParseFloat(duration, 64)
		if err != nil {
			return msgs, fmt.Errorf("Duration not a number: %s", err.Error())
		}
		msgs = append(msgs, fmt.Sprintf("Waiting %g seconds", d))
		time.Sleep(time.Duration(d * float64(time.Second)))
	}

	if first(values, "fail") == "true" {
		msgs = append(msgs, "Failure requested. Stopping.")
		return msgs, fmt.Errorf("Failed to run: %s", first(values, "reason"))
	}
	msgs = append(msgs, "All OK. Example function finished successfully.")
	return msgs, nil
}

func first(values map[string][]string, name string) string {
	if len(values[name]) > 0 {
		return values[name][0]
	}
	return ""
}
