package handlers

const (
	// Run history paging
	defaultPageSize = 20
	maxPageSize     = 100

	// Route prefix artifacts are served from
	artifactsRoute = "/api/v1/artifacts/"
)
