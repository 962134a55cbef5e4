package templates

// LogView template for displaying the jobs of the current user in a list.
const LogView = `
{{define "content"}}
	<div class="repository file list">
		<div class="ui container">
			<p id="repo-desc">
			<span class="description has-emoji">Work log</span>
			</p>
			<table id="repo-files-table" class="ui unstackable fixed single line table">
				<tbody>
					{{range $job := .}}
						<tr>
							<td class="name two wide">J{{$job.ID}}</td>
							<td class="name text bold four wide"><a href="/log/{{$job.ID}}">{{$job.Label}}</a></td>
							<td class="name four wide">{{$job.SubmitTime.Format "15:04:05 Mon Jan 2 2006"}}</td>
							<td class="name four wide">{{if $job.IsFinished}}{{$job.EndTime.Format "15:04:05 Mon Jan 2 2006"}}{{else}}In queue{{end}}</td>
							<td class="name four wide">{{if $job.Error}}{{$job.Error}}{{end}}</td>
						</tr>
					{{else}}
						<tr><td>No jobs submitted yet</td></tr>
					{{end}}
				</tbody>
			</table>
		</div>
	</div>
{{end}}
`
