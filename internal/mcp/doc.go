// Package mcp exposes the shredder to AI assistants over the Model Context
// Protocol using mcp-go.
//
// # Tools
//
//   - shredder_available: returns "true" when secure deletion can run here.
//   - secure_delete: overwrites and removes one file. Arguments are path
//     (required) and passes (optional, defaults to the configured value).
//
// Failures are returned as tool errors, not protocol errors, and start with a
// stable code so a caller can branch on them:
//
//	FILE_NOT_FOUND     the path did not exist; nothing was changed
//	FILE_NOT_WRITABLE  the file could not be opened for writing
//	SHRED_ERROR        an overwrite step failed; the file is partially overwritten
//	DELETE_FAILED      contents destroyed, directory entry left behind
//	UNEXPECTED_ERROR   anything else, including rejected targets
//	GIT_TRACKED        refused because git history keeps a copy (git_check: refuse)
//
// # Security
//
// Targets go through fileops.ValidateShredTarget before anything is opened, so
// reserved system paths, directories and symbolic links are rejected. There
// is no batch or recursive tool; each call removes at most one file.
//
// # Usage
//
// The server is started as a subprocess by an MCP client:
//
//	shredder mcp
//
// It reads JSON-RPC requests from stdin and writes responses to stdout until
// EOF. Logs go to stderr.
package mcp
