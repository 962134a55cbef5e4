package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"strings"

	"github.com/G-Node/tonicforms/tonic"
	"github.com/G-Node/tonicforms/tonic/form"
	"github.com/G-Node/tonicforms/tonic/worker"
	"github.com/gogs/go-gogs-client"
	"gopkg.in/yaml.v3"
)

// labProjectConfig extends the tonic config with fields specific to the
// labproject service.
type labProjectConfig struct {
	tonic.Config `yaml:",inline"`
	// TemplateRepo is migrated into the main repository of every new project.
	TemplateRepo string `yaml:"templaterepo"`
}

// lpconfig global configuration for the service
var lpconfig *labProjectConfig

const projectSchema = `
- id: organisation
  type: select
  label: Lab organisation
  required: true
- id: project
  type: text
  label: Project name
  description: Must not already exist
  required: true
  pattern: "^[A-Za-z0-9_.-]+$"
- id: teammode
  type: radio
  label: Team
  default: new
  options:
    - {value: new, label: Create a new team}
    - {value: existing, label: Use an existing team}
- id: teamrow
  type: row
  schema:
    - id: team
      type: select
      label: Existing team
      visible: teammode=existing
      required: teammode=existing
    - id: newteam
      type: text
      label: Team name
      description: If left blank, the team gets the name of the project.
      visible: teammode=new
- id: title
  type: textarea
  label: Title
  description: Project title
- id: repos
  type: list
  label: Additional repositories
  addLabel: Add repository
  maxRows: 10
  schema:
    - id: name
      type: text
      label: Repository suffix
      pattern: "^[A-Za-z0-9_.-]*$"
- id: members
  type: list
  label: Team members
  addLabel: Add member
  schema:
    - id: login
      type: text
      label: GIN username
`

func main() {
	schema, err := form.ParseYAML([]byte(projectSchema))
	if err != nil {
		log.Fatal(err)
	}
	lpconfig = readConfig("labproject.yml")
	tsrv, err := tonic.NewService(schema, setForm, newProject, lpconfig.Config)
	if err != nil {
		log.Fatal(err)
	}
	err = tsrv.Start()
	if err != nil {
		log.Fatal(err)
	}
	tsrv.WaitForInterrupt()
	tsrv.Stop()

}

// setForm fills the organisation and team options with the organisations
// the user and the bot have in common.
func setForm(schema form.Schema, botClient, userClient *worker.Client) (form.Schema, error) {
	orgs, err := getAvailableOrgsAndTeams(botClient, userClient)
	if err != nil {
		return schema, err
	}

	orgList := make([]form.Choice, 0, len(orgs))
	teamList := make([]form.Choice, 0)
	for availOrg, availTeams := range orgs {
		orgList = append(orgList, form.Choice{Value: availOrg, Label: availOrg})
		for _, team := range availTeams {
			teamList = append(teamList, form.Choice{Value: team, Label: fmt.Sprintf("%s (%s)", team, availOrg)})
		}
	}

	for idx := range schema {
		node := &schema[idx]
		switch node.ID {
		case "organisation":
			node.Options = orgList
		case "teamrow":
			// nested schemas are shared with the service schema
			row := make(form.Schema, len(node.Schema))
			copy(row, node.Schema)
			for jdx := range row {
				if row[jdx].ID == "team" {
					row[jdx].Options = teamList
				}
			}
			node.Schema = row
		}
	}
	return schema, nil
}

func first(values map[string][]string, name string) string {
	if len(values[name]) > 0 {
		return values[name][0]
	}
	return ""
}

// rowValues collects a field of all rows of a list from the posted values.
func rowValues(values map[string][]string, list, field string) []string {
	collected := make([]string, 0)
	for idx := 0; ; idx++ {
		v, ok := values[fmt.Sprintf("%s[%d][%s]", list, idx, field)]
		if !ok {
			return collected
		}
		if len(v) > 0 && v[0] != "" {
			collected = append(collected, v[0])
		}
	}
}

func newProject(values map[string][]string, botClient, userClient *worker.Client) ([]string, error) {
	orgName := first(values, "organisation") // required
	project := first(values, "project")      // required
	title := first(values, "title")
	teamName := first(values, "newteam")
	if first(values, "teammode") == "existing" {
		teamName = first(values, "team")
	}
	if teamName == "" {
		// Team name not specified; use project name
		teamName = project
	}

	msgs := make([]string, 0, 10)

	// verify that the user is a member of the organisation
	validOrgs, err := getAvailableOrgsAndTeams(botClient, userClient)
	if err != nil {
		msgs = append(msgs, "Failed to get list of valid orgs")
		return msgs, err
	}
	if _, ok := validOrgs[orgName]; !ok {
		msgs = append(msgs, fmt.Sprintf("Lab organisation %q is not a valid option. Either user is not a member, or the service is not enabled for that organisation.", orgName))
		return msgs, fmt.Errorf("Invalid organisation %q: Cannot create new project", orgName)
	}

	org, err := botClient.GetOrg(orgName)
	if err != nil {
		msgs = append(msgs, fmt.Sprintf("Failed to get organisation %q: %s", orgName, err.Error()))
		return msgs, err
	}

	repoNames := make([]string, 0)
	mainRepo := fmt.Sprintf("%s.main", project)
	if lpconfig.TemplateRepo != "" {
		cloneURL := fmt.Sprintf("%s/%s.git", strings.TrimSuffix(lpconfig.GIN.Web, "/"), lpconfig.TemplateRepo)
		msgs = append(msgs, fmt.Sprintf("Creating %s/%s from template repository %s", orgName, mainRepo, lpconfig.TemplateRepo))
		repo, err := botClient.MigrateRepo(gogs.MigrateRepoOption{
			CloneAddr:   cloneURL,
			UID:         int(org.ID),
			RepoName:    mainRepo,
			Private:     true,
			Description: title,
		})
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("Failed to create repository: %v", err.Error()))
			return msgs, err
		}
		msgs = append(msgs, fmt.Sprintf("Repository created: %s", repo.FullName))
	} else if err := createRepo(botClient, orgName, mainRepo, title, &msgs); err != nil {
		return msgs, err
	}
	repoNames = append(repoNames, mainRepo)

	for _, suffix := range rowValues(values, "repos", "name") {
		name := fmt.Sprintf("%s.%s", project, suffix)
		if err := createRepo(botClient, orgName, name, title, &msgs); err != nil {
			return msgs, err
		}
		repoNames = append(repoNames, name)
	}

	orgTeams, err := botClient.ListTeams(orgName)
	if err != nil {
		msgs = append(msgs, fmt.Sprintf("Failed to list teams for org: %s", orgName))
		return msgs, err
	}

	// Check if Team exists
	var team *gogs.Team
	for _, orgTeam := range orgTeams {
		if orgTeam.Name == teamName {
			team = orgTeam
			msgs = append(msgs, fmt.Sprintf("Team %s exists. Skipping team creation.", teamName))
			break
		}
	}

	members := rowValues(values, "members", "login")
	if team == nil {
		// Create Team
		// TODO: Use non admin command when it becomes available
		msgs = append(msgs, fmt.Sprintf("Creating team %s/%s", orgName, teamName))
		team, err = botClient.AdminCreateTeam(orgName, gogs.CreateTeamOption{Name: teamName, Description: title, Permission: "admin"})
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("Failed to create team: %s", err.Error()))
			return msgs, err
		}
		msgs = append(msgs, fmt.Sprintf("Team created: %s", team.Name))

		user, err := userClient.GetSelfInfo()
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("Failed to retrieve user info: %s", err.Error()))
			return msgs, err
		}
		members = append([]string{user.UserName}, members...)
	}

	// Add users to Team
	for _, login := range members {
		msgs = append(msgs, fmt.Sprintf("Adding user %q to team %q", login, team.Name))
		if err := botClient.AdminAddTeamMembership(team.ID, login); err != nil {
			msgs = append(msgs, fmt.Sprintf("Failed to add user: %s", err.Error()))
			return msgs, err
		}
	}

	// Add Repositories to Team
	for _, repoName := range repoNames {
		msgs = append(msgs, fmt.Sprintf("Adding repository %q to team %q", repoName, team.Name))
		if err := botClient.AdminAddTeamRepository(team.ID, repoName); err != nil {
			msgs = append(msgs, fmt.Sprintf("Failed to add repository %q to team: %s", repoName, err.Error()))
			return msgs, err
		}
	}

	return msgs, nil
}

func createRepo(botClient *worker.Client, orgName, name, description string, msgs *[]string) error {
	repoOpt := gogs.CreateRepoOption{
		Name:        name,
		Description: description,
		Private:     true,
		AutoInit:    true,
		Readme:      "Default",
	}
	*msgs = append(*msgs, fmt.Sprintf("Creating %s/%s", orgName, repoOpt.Name))
	repo, err := botClient.CreateOrgRepo(orgName, repoOpt)
	if err != nil {
		*msgs = append(*msgs, fmt.Sprintf("Failed to create repository: %v", err.Error()))
		return err
	}
	*msgs = append(*msgs, fmt.Sprintf("Repository created: %s", repo.FullName))
	return nil
}

// getAvailableOrgsAndTeams returns a map of organisation names that the user
// and bot both belong to, each mapped to a list of organisation teams that the
// user belongs to.
func getAvailableOrgsAndTeams(botClient, userClient *worker.Client) (map[string][]string, error) {
	// An org is available for management on the service if the user is a
	// member and the bot is an owner or admin.
	botOrgs, err := botClient.ListMyOrgs()
	if err != nil {
		return nil, err
	}

	// get orgs where the bot has admin access
	adminOrgs := make(map[int64]gogs.Organization, len(botOrgs))
	for _, botOrg := range botOrgs {
		teams, err := botClient.ListTeams(botOrg.UserName)
		if err != nil {
			return nil, err
		}
		for _, team := range teams {
			if team.Permission == "admin" || team.Permission == "owner" {
				adminOrgs[botOrg.ID] = *botOrg
			}
		}
	}

	userOrgs, err := userClient.ListMyOrgs()
	if err != nil {
		return nil, err
	}

	validOrgTeams := make(map[string][]string)
	for _, userOrg := range userOrgs {
		if _, ok := adminOrgs[userOrg.ID]; ok {
			validOrgTeams[userOrg.UserName] = nil
			orgTeams, err := userClient.ListTeams(userOrg.UserName)
			if err != nil {
				// couldn't get teams; assume user has none in this org
				continue
			}
			teams := make([]string, 0, len(orgTeams))
			for _, team := range orgTeams {
				teams = append(teams, team.Name)
			}
			validOrgTeams[userOrg.UserName] = teams
		}
	}

	return validOrgTeams, nil
}

func readConfig(filename string) *labProjectConfig {
	confData, err := ioutil.ReadFile(filename)
	if err != nil {
		log.Fatal(err)
	}

	config := new(labProjectConfig)
	if err := yaml.Unmarshal(confData, config); err != nil {
		log.Fatal(err)
	}

	// Set defaults for any unset values
	if config.CookieName == "" {
		config.CookieName = "utonic-labproject"
		log.Printf("[config] Setting default cookie name: %s", config.CookieName)
	}
	if config.Port == 0 {
		config.Port = 3000
		log.Printf("[config] Setting default port: %d", config.Port)
	}
	if config.DBPath == "" {
		config.DBPath = "./labproject.db"
		log.Printf("[config] Setting default dbpath: %s", config.DBPath)
	}
	if config.Title == "" {
		config.Title = "Project creation"
	}
	if config.Description == "" {
		config.Description = "Creating a new project will create a new set of repositories based on the lab template and a team for granting access to all project members."
	}

	// Warn about unset values with no defaults
	unset := make([]string, 0, 5)
	if config.GIN.Web == "" {
		unset = append(unset, "gin.web")
	}
	if config.GIN.Username == "" {
		unset = append(unset, "gin.username")
	}
	if config.GIN.Password == "" {
		unset = append(unset, "gin.password")
	}
	if config.TemplateRepo == "" {
		unset = append(unset, "templaterepo")
	}
	if len(unset) > 0 {
		log.Printf("WARNING: The following configuration options are unset and have no defaults: %s", strings.Join(unset, ", "))
	}
	return config
}
