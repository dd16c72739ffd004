package protocol

// Asks the daemon to execute a recipe.
//
// The recipe is loaded daemon-side from the given path so the daemon and a
// CLI on the same host see identical recipe bytes.
type BuildRequest struct {
	RecipePath string   `json:"recipe_path"`         // Path to the recipe file.
	Resource   string   `json:"resource"`            // Resource name, prefixes container IDs.
	Output     string   `json:"output"`              // Directory for the exported image.
	Root       string   `json:"root"`                // Build context root.
	Platforms  []string `json:"platforms,omitempty"` // Target platforms. Empty means host.
	Verify     bool     `json:"verify,omitempty"`    // Audit the exported image after the build.
}

// Reports a completed build.
type BuildResult struct {
	Output      string   `json:"output"`               // Directory containing the exported image.
	ImageDigest string   `json:"image_digest"`         // Digest of the exported archive.
	Violations  []string `json:"violations,omitempty"` // Audit findings when verification was requested.
}

// Asks the daemon to audit an exported image archive against a recipe.
type VerifyRequest struct {
	Archive    string `json:"archive"`     // Path to the exported image.tar.
	RecipePath string `json:"recipe_path"` // Recipe the image was built from.
}

// Reports audit findings. An empty Violations list means the image passed.
type VerifyResult struct {
	Violations []string `json:"violations,omitempty"`
}

// Reports daemon health and counters.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Builds  int    `json:"builds"`
}

// Carries a failure message back to the client.
type ErrorResult struct {
	Message string `json:"message"`
}
