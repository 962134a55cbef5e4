package templates

// Login asks for GIN credentials. A failed attempt is shown again with
// .message and the entered .username.
const Login = `
{{ define "title" }}Sign in - Tonic{{ end }}
{{ define "nav" }}
								<div class="right menu">
									<a class="item active" href="/login">Sign in</a>
								</div>
{{ end }}
{{ define "content" }}
			<div class="user signin">
				<div class="ui middle very relaxed page grid">
					<div class="column">
						<form class="ui form" action="/login" method="post">
							<h3 class="ui top attached header">
								Sign In using your GIN credentials
							</h3>
							<div class="ui attached segment">
								{{ if .message }}
								<div class="ui negative message">{{ .message }}</div>
								{{ end }}
								<div class="required inline field ">
									<label for="username">Username or email</label>
									<input id="username" name="username" value="{{ .username }}" autofocus required>
								</div>
								<div class="required inline field ">
									<label for="password">Password</label>
									<input id="password" name="password" type="password" autocomplete="off" value="" required>
								</div>
								<div class="inline field">
									<label></label>
									<button class="ui green button">Sign In</button>
								</div>
							</div>
						</form>
					</div>
				</div>
			</div>
{{ end }}
`
