// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables, SESSBOX_SECTION__KEY
//  3. YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports changes to the configuration file so long-running
// processes can apply reloadable settings such as the log level.
package confloader
