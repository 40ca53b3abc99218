// Package file provides file-based implementations of the configuration
// ports: TOML application config, user-editable prompt templates and the
// prescreen rule sets with change watching.
package file
