package templates

// Form embeds a rendered form. The form markup is passed in as .form and
// carries its own submit, save and reset buttons.
const Form = `
{{ define "content" }}
			<div class="ginform">
				<div class="ui middle very relaxed page grid">
					<div class="column">
						<h3 class="ui top attached header">
							{{.title}}
						</h3>
						<div class="ui attached segment">
							{{if .description}}
								<p class="help">{{.description}}</p>
							{{end}}
							{{if .message}}
								<div class="ui info message">{{.message}}</div>
							{{end}}
							{{if .invalid}}
								<div class="ui error message">Please correct the marked fields.</div>
							{{end}}
							{{.form}}
						</div>
					</div>
				</div>
			</div>
{{ end }}
`
