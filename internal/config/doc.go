// Package config loads the daemon's JSON configuration file: wallet keystore
// location, chain definitions, poll budget, history store, cache, alerting
// and logging. Defaults are filled in so a minimal file only needs the
// keystore directory and the contract address.
package config
