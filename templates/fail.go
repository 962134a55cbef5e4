package templates

// Fail shows an error status and message with a way back: the login page for
// 401 responses, the form otherwise.
const Fail = `
{{ define "title" }}{{ .StatusCode }} {{ .StatusText }} - Tonic{{ end }}
{{ define "content" }}
			<div class="ui middle very relaxed page grid">
				<div class="column">
					<h3 class="ui top attached header">{{ .StatusCode }}: {{ .StatusText }}</h3>
					<div class="ui attached segment">
						<div class="ui negative message">{{ .Message }}</div>
						{{ if eq .StatusCode 401 }}
						<a class="ui button" href="/login">Sign in again</a>
						{{ else }}
						<a class="ui button" href="/">Back to the form</a>
						<a class="ui button" href="/log">Jobs</a>
						{{ end }}
					</div>
				</div>
			</div>
{{ end }}
`
