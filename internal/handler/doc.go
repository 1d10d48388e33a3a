// Package handler maps file extensions to parse functions. A Registry decides
// which parser reads a configuration file and, through its extension list,
// which files are considered candidates at all.
package handler
