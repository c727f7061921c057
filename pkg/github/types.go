package github

// Repository is the subset of a GitHub repository object in use.
type Repository struct {
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	StargazersCount int    `json:"stargazers_count"`
	StargazersURL   string `json:"stargazers_url"`
}

// User is the subset of a GitHub user object in use. Login is a pointer so a
// missing field can be told apart from an empty one.
type User struct {
	Login *string `json:"login"`
}

// RepositoryInfo is one row of the repository report.
type RepositoryInfo struct {
	Name       string
	Stars      int
	Stargazers []string
}
