package domain

// Environment distinguishes development from production invocations —
// orchestrators run hosts in both, and handlers frequently branch on it.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// User identifies the person who triggered a transaction or opened a page.
// The host never authenticates this; the orchestrator vouches for it.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Organization is resolved once, from the INITIALIZE_HOST response, and
// threaded into every subsequent handler context.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
