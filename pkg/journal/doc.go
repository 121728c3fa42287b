/*
Package journal records management changes so their status can be queried
later by id.

Every zone creation, deletion and record-set change is written once and never
modified. Two backends implement Journal:

	file  one YAML document per change in a directory (default)
	bolt  one key per change in a BoltDB file (journal.db)

	j, err := journal.Open(journal.BackendFile, "/var/lib/zoned/changes")
	id, err := j.Record("example.com.", types.ChangeResourceRecordSets, body)
	change, err := j.Get(id)

Get returns an error wrapping types.ErrNotFound for unknown ids.
*/
package journal
