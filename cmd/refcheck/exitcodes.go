package main

// Exit codes shared by all subcommands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad config file, invalid flags)
	ExitNotFound    = 3 // Reference could not be resolved by any provider
	ExitValidation  = 4 // Supporting text not found in the reference
)
