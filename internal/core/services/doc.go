// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The main services are the ingestion orchestrator, the query service
// (router, retriever, analytics and answer composition), the lease
// service and the pending-document registry.
//
// Services are pure Go with no CGO or external dependencies.
package services
