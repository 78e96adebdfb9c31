package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every HTTP handler mounted on the application router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Job is a background task started alongside the HTTP server.
type Job interface {
	Start()
	Stop()
}
