package app

import "github.com/spf13/pflag"

// RegisterFlags registers the global CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.CountP("verbose", "v", "Increase log verbosity (repeatable: -v info, -vv debug)")
	flags.BoolP("quiet", "q", false, "Only log errors")
	flags.StringP("timestamp", "t", "", "Log timestamp precision: off, sec, ms, us or ns")
	flags.String("backend", "", "Version control backend: go-git or git")
	flags.Int("workers", 0, "Number of files indexed concurrently")
	flags.StringSlice("exclude", nil, "Glob patterns to skip in addition to ignored files (comma-separated)")
	flags.String("cache-dir", "", "Cache directory name under the repository root")
}

// RegisterSearchFlags registers the flags of the search command
func RegisterSearchFlags(flags *pflag.FlagSet) {
	flags.String("author", "", "Only show TODOs by this author")
	flags.String("language", "", "Only show TODOs in files of this language")
	flags.Int("max-results", 0, "Maximum number of results")
}

// RegisterServeFlags registers the flags of the serve command
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.Int("max-results", 0, "Default maximum number of search_todos results")
}
