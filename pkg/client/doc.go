/*
Package client is a Go client for the zoned management API.

It is used by the zoned CLI (zone, record and change commands) and maps API
error responses back onto errdefs classes, so callers can test results with
errdefs.IsNotFound and friends just as they would against the service.

	c, err := client.NewClient("127.0.0.1:8053")
	if err != nil {
		return err
	}
	created, err := c.CreateZone("example.com.", "ref-1", "")
	...
	change, err := c.ChangeRecords(created.HostedZone.ID, "add www", []hostedzone.Change{
		{Action: types.ActionCreate, Name: "www", Type: "A", TTL: 300, Values: []string{"192.0.2.10"}},
	})

Every request has a 10 second timeout.
*/
package client
