package commands

// Upload and Download re-export the package's unexported transfer
// helpers for external tests in package commands_test.
var (
	Upload   = upload
	Download = download
)
