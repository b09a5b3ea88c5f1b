// Package config defines the updater settings supplied by the owner
// application and provides helpers to load, validate and save them in YAML.
//
// The Config type holds the feed URI per channel, the proxy, the application
// to relaunch and the directories used for artifacts, scripts and state.
package config
