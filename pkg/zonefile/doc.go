/*
Package zonefile reads and writes BIND-style zone files.

# Parsing

Parse turns zone file text into a types.Zone. Work happens in two passes:

 1. Lines are cleaned: ";" comments are stripped (outside quoted strings),
    tabs are folded into spaces and parenthesized continuations are joined
    into one logical line.

 2. Each logical line is matched and tagged as a ParsedLine:

    LineOrigin   $ORIGIN example.com.
    LineTTL      $TTL 1D
    LineRecord   name [ttl] [class] TYPE rdata
    LineIgnored  anything else

Supported record types are SOA, NS, MX, A, AAAA, CNAME, PTR, TXT and HINFO.
Lines that match no supported shape are ignored rather than failing the
whole file; ParseLines exposes them for diagnostics.

The TTL and class in front of the type may be given in either order or be
omitted, see FixTTLClass. TTL literals accept S, M, H, D and W suffixes:

	ParseTTL("2H")    == 7200
	ParseTTL("3W")    == 1814400
	ParseTTL("bogus") == 0

Owner names and targets are stored verbatim ("@", relative names,
wildcards). Expand projects them into fully-qualified names.

# Metadata

Management metadata lives in comment directives that plain BIND ignores:

	;$REF caller-reference
	;$ZONEID 0A1B2C... ; free-form comment
	;$UID owner

# Formatting

Format is the inverse of Parse. SOA records are written over six lines with
the timer fields annotated; other records are padded into columns:

	@ 86400 IN SOA ns1 hostmaster (
	                     2024010101          ; serial
	                     ...
	www                  3600      IN A      192.0.2.10
*/
package zonefile
