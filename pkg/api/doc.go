/*
Package api serves the hosted zone management operations as a JSON HTTP API.

Routes follow the Route 53 layout under a version prefix. Zones can be
addressed by id or by origin name wherever {id} appears.

	GET    /2010-10-01/hostedzone               list zones (maxitems, marker)
	POST   /2010-10-01/hostedzone               create a zone
	GET    /2010-10-01/hostedzone/{id}          describe a zone
	DELETE /2010-10-01/hostedzone/{id}          delete a zone
	GET    /2010-10-01/hostedzone/{id}/rrset    list record sets (name, type, maxitems)
	POST   /2010-10-01/hostedzone/{id}/rrset    apply a change batch
	GET    /2010-10-01/change/{id}              change status

The same listener serves /health, /ready, /live and /metrics.

Errors carry a JSON body with a code and a message. The code follows the
errdefs class of the underlying error:

	NotFound          404
	AlreadyExists     409
	InvalidArgument   400
	PermissionDenied  403
	InternalError     500

With Config.ReadOnly set, only List and Get routes are served.

Every versioned route is counted in zoned_api_requests_total{method,status}
and timed in zoned_api_request_duration_seconds{method}, where method is the
route name (for example ChangeResourceRecordSets).
*/
package api
