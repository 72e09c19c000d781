// Package storage selects the wallet store backend from configuration.
package storage
