// Package config loads the daemon's JSON configuration file and validates the
// environment credentials that gate startup. Credential validation runs before
// any other component is constructed; a missing mandatory secret stops the
// process.
package config
