// Package hostconfig provides the host application's configuration sources
// consulted by the settings proxy: an in-memory map, process environment,
// a watched YAML file and a SQLite-backed store, composable with Chain.
//
// Every source synchronizes itself; Lookup is safe for concurrent use.
package hostconfig
