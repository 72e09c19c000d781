// Package wallet persists and restores the agent's on-chain identity. A Store
// holds the exported wallet document; a Provider turns that document back into
// a signing key bound to one network.
package wallet
