/*
Package events provides an in-memory broker for zone change notifications.

The zone store publishes an event whenever a zone is loaded or reloaded from
its file, unloaded, or changed through a journaled mutation. zoned serve
subscribes to write an audit trail to the log; tests subscribe to wait for
the file watcher.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	store.SetEvents(broker)
	sub := broker.Subscribe()
	for ev := range sub {
		fmt.Println(ev.Type, ev.Zone)
	}

Delivery is asynchronous: events are queued (100 deep) and broadcast to
every subscriber channel (50 deep each). A subscriber whose buffer is full
misses the event rather than stalling the broker.

Event types:

	zone.loaded       a zone file was parsed and published
	zone.unloaded     a zone was removed from the served set
	change.recorded   a mutation was written to the change journal
*/
package events
