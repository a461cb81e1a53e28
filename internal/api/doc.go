// Package api provides the HTTP REST API and WebSocket hub of Gray Hearth.
//
// Every handler that touches a stove goes through the scheduler's command
// queue, so requests are serialised with the tick loop and never observe a
// half-advanced stove. Mutating routes require a bearer token when
// security.jwt.secret is set; presentation replicas reject them outright.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
