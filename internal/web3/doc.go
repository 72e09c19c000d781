// Package web3 houses blockchain connectivity for the agent: the network
// table (embedded YAML with an optional file overlay), the chain client
// contract used by tools, and unit helpers for converting between decimal
// amounts and base units.
package web3
