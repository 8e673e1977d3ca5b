package auth

const githubDefaultBaseURL = "https://github.com"

// GitHubScopes are the scopes kickstart needs to create repositories and invite collaborators.
var GitHubScopes = []string{"repo", "user"}

var githubEndpoints = Endpoints{
	DeviceCodePath: "/login/device/code",
	TokenPath:      "/login/oauth/access_token",
}

// NewGitHubDeviceFlow creates a device flow for GitHub.
// See https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#device-flow
// Pass an empty baseURL to use the real GitHub API. Pass a test server URL in tests.
func NewGitHubDeviceFlow(clientID string, baseURL string, opts ...Option) *DeviceFlow {
	if baseURL == "" {
		baseURL = githubDefaultBaseURL
	}
	return newDeviceFlow("github", clientID, baseURL, githubEndpoints, opts)
}
