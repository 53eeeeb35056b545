// Package integration runs the domain services against a real PostgreSQL
// database migrated with the embedded schema.
//
//	go test -tags integration ./internal/integration/...
//
// INTEGRATION_DATABASE_URL points the tests at an existing server; without it
// a postgres:16-alpine container is started through the Docker CLI.
package integration
