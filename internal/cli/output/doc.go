// Package output renders CLI results as tables, JSON or YAML.
//
// Types that know how to lay themselves out in columns implement Tabular;
// anything else falls back to YAML in table mode.
package output
