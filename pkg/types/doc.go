/*
Package types defines the data model shared by the zoned packages.

# Core Types

  - ResourceRecord: one record from a zone file, names kept verbatim
  - Zone: a parsed zone file (origin, default TTL, sorted records, metadata)
  - ChangeRecord: an immutable journal entry for a management operation
  - Question / Location: inputs to the resolution engine
  - RecordSet / RecordSetKey: grouped records for listing and paging

# Record Ordering

Records inside a Zone are always sorted by type priority and then by owner
name, keeping the original order for ties:

	SOA=1  NS=2  MX=3  A/AAAA=4  CNAME=6  PTR=7  TXT=8  other=9

# Errors

Management errors are expressed as classes from github.com/containerd/errdefs:

	ErrNotFound      -> errdefs.ErrNotFound
	ErrAlreadyExists -> errdefs.ErrAlreadyExists
	ErrInvalidName   -> errdefs.ErrInvalidArgument
	ErrInternal      -> errdefs.ErrInternal
	ErrInvalidRecord -> errdefs.ErrInvalidArgument

Resolution outcomes (REFUSED, NXDOMAIN) are response codes, not errors.
*/
package types
