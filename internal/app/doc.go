// Package app wires configuration, storage, memory, chain access and the
// activity publisher into a session factory shared by both binaries.
package app
