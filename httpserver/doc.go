/*
Package httpserver exposes a certificate registry over HTTP.

Handler maps the registry operations onto JSON routes under /api, and Server
adds the operational surface: request ids, structured request logging,
per-route Prometheus metrics, health and drain endpoints, optional pprof and
graceful shutdown.

State-changing routes require an X-Registry-Signature header; the recovered
signer becomes the caller of the registry operation. Registry errors map to
status codes as follows:

	403  caller is not the owner, or not an authorized issuer
	409  certificate id or fingerprint already issued
	400  malformed request or mismatched bulk arrays
	401  missing or invalid signature
	404  no archived document
	502  archived document does not match the registry
	503  archive backend unavailable
*/
package httpserver
