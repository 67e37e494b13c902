package cmd

// Centralized command name strings for all CLI commands and subcommands.
// Use these constants in Cobra Use fields and user-facing messages (error
// text, help text, remediation suggestions) so that command names are
// defined in exactly one place.

const (
	// Root command
	strataCmdStr = "strata"

	// Top-level commands
	composeCmdStr  = "compose"
	installCmdStr  = "install"
	watchCmdStr    = "watch"
	statusCmdStr   = "status"
	lsCmdStr       = "ls"
	showCmdStr     = "show"
	profilesCmdStr = "profiles"
	validateCmdStr = "validate"
	historyCmdStr  = "history"
	initCmdStr     = "init"
	versionCmdStr  = "version"
)

// Flag names shared across multiple commands.
const (
	profileFlagName         = "profile"
	outputFlagName          = "output"
	forceFlagName           = "force"
	preserveContextFlagName = "preserve-context"
	dryRunFlagName          = "dry-run"
	skipGitignoreFlagName   = "skip-gitignore"
	limitFlagName           = "limit"
	allFlagName             = "all"
)
