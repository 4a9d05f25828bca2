package environment

import "strings"

// Environment names the deployment the process is running in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Parse maps APP_ENV style values onto a known Environment.
// Short aliases ("prod", "stage", "dev") are accepted; anything unknown is
// treated as Development.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

func (e Environment) IsProduction() bool { return e == Production }

// SecureCookies reports whether cookies issued in this environment must carry
// the Secure attribute.
func (e Environment) SecureCookies() bool { return e != Development }

func (e Environment) String() string { return string(e) }
