package main

// Process exit codes shared by all commands.
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (no workspace, bad config) / Index not found
	ExitDataError     = 3 // Data error (malformed archive, unreadable JSONL) / Ollama not available
	ExitNoRecords     = 4 // Archive yielded no records
	ExitModelNotFound = 5 // Embedding model not found
	ExitIndexStale    = 6 // Semantic index is stale
)
