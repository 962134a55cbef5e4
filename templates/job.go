package templates

// JobView shows the submitted values and the output of a single job.
const JobView = `
{{define "content"}}
	<div class="ui container">
		<h3 class="ui top attached header">J{{.job.ID}}: {{.job.Label}}</h3>
		<div class="ui attached segment">
			<div>Submitted {{.submit_time}}</div>
			<div>{{if .end_time}}Finished {{.end_time}}{{else}}In queue{{end}}</div>
			<table class="ui definition table">
				<tbody>
					{{range $name := .names}}
						<tr>
							<td>{{$name}}</td>
							<td>{{index $.job.ValueMap $name}}</td>
						</tr>
					{{end}}
				</tbody>
			</table>
			{{if .job.Messages}}
				<div class="ui message">
					{{range $msg := .job.Messages}}
						<div>{{$msg}}</div>
					{{end}}
				</div>
			{{end}}
			{{if .job.Error}}
				<div class="ui error message">{{.job.Error}}</div>
			{{end}}
		</div>
	</div>
{{end}}
`
