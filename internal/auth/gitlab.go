package auth

const gitlabDefaultBaseURL = "https://gitlab.com"

// GitLabScopes are the scopes kickstart needs to create projects and add members.
var GitLabScopes = []string{"api"}

var gitlabEndpoints = Endpoints{
	DeviceCodePath: "/oauth/authorize_device",
	TokenPath:      "/oauth/token",
}

// NewGitLabDeviceFlow creates a device flow for GitLab.
// See https://docs.gitlab.com/ee/api/oauth2.html#device-authorization-grant-flow
// baseURL is the GitLab instance URL since GitLab can be self-hosted; pass an empty string for gitlab.com.
func NewGitLabDeviceFlow(clientID string, baseURL string, opts ...Option) *DeviceFlow {
	if baseURL == "" {
		baseURL = gitlabDefaultBaseURL
	}
	return newDeviceFlow("gitlab", clientID, baseURL, gitlabEndpoints, opts)
}
