package tracing

// Span attribute keys set by the gateway. Standard keys follow the
// OpenTelemetry HTTP semantic conventions; gateway specific keys use the
// "aegis." namespace.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrURLPath        = "url.path"
	AttrServerAddress  = "server.address"
	AttrEndUserID      = "enduser.id"

	AttrService   = "aegis.service"
	AttrRejection = "aegis.rejection"
	AttrRequestID = "aegis.request_id"
	AttrTenantID  = "aegis.tenant_id"
)

// Instrumentation scope names of the gateway's tracers.
const (
	ScopePipeline  = "mercator-hq/aegis/pipeline"
	ScopeForwarder = "mercator-hq/aegis/proxy"
)
