// Package mysql provides the MySQL-backed wallet store: connection settings,
// the wallets table queries and a Migrate hook that applies the embedded
// mysql schema scripts.
package mysql
