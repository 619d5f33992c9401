// Package config defines the SessBox configuration shared by the CLI and
// the agent.
//
// Values are layered by confloader (flags, SESSBOX_* environment, YAML
// file) over Default(). Verify rejects values the application cannot run
// with.
package config
