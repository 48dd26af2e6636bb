package harness

// DeterministicEnv pins identity, timestamps, and colour for commands whose
// output is compared verbatim.
var DeterministicEnv = map[string]string{
	"GIT_AUTHOR_NAME":     "cliharness",
	"GIT_AUTHOR_EMAIL":    "cliharness@example.com",
	"GIT_COMMITTER_NAME":  "cliharness",
	"GIT_COMMITTER_EMAIL": "cliharness@example.com",
	"GIT_AUTHOR_DATE":     "2000-01-01T00:00:00Z",
	"GIT_COMMITTER_DATE":  "2000-01-01T00:00:00Z",
	"NO_COLOR":            "1",
	"CLICOLOR":            "0",
	"CLICOLOR_FORCE":      "0",
}

// ApplyEnv sets every entry of env as an override.
func (ec *ExecutionContext) ApplyEnv(env map[string]string) {
	for k, v := range env {
		ec.env[k] = v
	}
}
