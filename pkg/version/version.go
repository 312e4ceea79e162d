// Package version provides version information for the oracle-watch application.
package version

// Version is the current version of the oracle-watch application.
const Version = "0.3.1"

// AgentString returns the User-Agent sent to the observer stream.
// Format: oracle-watch/{version}
func AgentString() string {
	return "oracle-watch/" + Version
}
