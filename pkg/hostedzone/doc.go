// Package hostedzone implements the zone management operations exposed by
// the HTTP API: listing, creating and deleting zones, listing and changing
// record sets, and reporting change status. It is a thin facade over
// zonestore and journal.
package hostedzone
