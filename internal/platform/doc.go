// Package platform is a small client for the wallet platform REST API. Each
// request carries a bearer JWT signed with the deployment's API key pair.
package platform
