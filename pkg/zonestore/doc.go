/*
Package zonestore keeps the set of loaded zones and applies management
mutations to their backing files.

Zones are read from *.zone files in a single directory. Every mutation is a
read-modify-write of one file: the file is parsed from disk, the change is
applied to the structured records, the zone is formatted and written to a
temporary file that is renamed over the original, and the result is parsed
again and swapped into the store. Readers never observe a partially applied
change.

Deleted zones are moved into the deleted/ subdirectory rather than removed.

Watch keeps the store in step with edits made to the directory by other
tools.
*/
package zonestore
