/*
Package ipfix decodes IPFIX (RFC 7011) messages from a byte stream.

# Overview

An IPFIX message is a 16-byte header followed by a sequence of sets. A
set is a 4-byte header (set id, set length) followed by one or more
records of the same kind: template records (set id 2), options
template records (set id 3), or data records (set id >= 256, with ids
4-255 reserved). Template and options template records describe the
field layout of the data records that will later arrive tagged with
their template id; data records themselves carry no field names or
types, only raw values in the order their template declares.

This package exposes that decode as three layers, each usable on its
own:

  - ParseMessage turns a byte slice into a Message plus the unconsumed
    remainder, distinguishing a message that simply hasn't fully
    arrived yet from one that is corrupt.
  - TemplateCache holds the templates announced so far and resolves
    the Addition / Redefinition / RedefinitionDifferent / Withdrawal /
    WithdrawalUnknown outcome of each new template announcement,
    scoped by observation domain.
  - DecodeDataRecords turns a data set's raw bytes into typed Values
    once the matching Template has been looked up from a cache.

Collector ties the three together into a pull loop over a ByteSource,
for callers that would rather hand it a net.Conn or bufio.Reader than
drive ParseMessage themselves.

# Error model

Three distinct situations can arise while decoding, and this package
is deliberately precise about which is which:

  - Incomplete (wire.ErrIncomplete): the buffer doesn't yet hold a
    full message. Not an error in the usual sense — the caller should
    read more bytes from the stream and retry with the same buffer.
  - Malformed at message scope: the message header or a set boundary
    is corrupt in a way that desynchronizes the byte stream. There is
    no way to resync past it, so the caller should close the
    connection.
  - Malformed at set scope: a template or options template record
    inside an otherwise well-formed set failed to parse. Because the
    enclosing set's length is already known, the parser can skip
    straight to the next set; the error is attached to that Set's Err
    field rather than aborting the message. A template that parses but
    fails verification is logged and skipped by Collector; it does not
    set Err.

# Templates

A template announces a field list; VerifyTemplate and
VerifyOptionsTemplate check that list against the IANA information
element registry in the iana subpackage before a Template is accepted
into a cache, rejecting unknown elements, fixed-length mismatches,
and the reduced-size encodings (lengths 3, 5, 6, 7) this package does
not implement.

Three TemplateCache implementations are provided: NewEphemeralCache
for an in-memory cache with no eviction, DecayingCache for one that
expires templates that haven't been redefined within a timeout, and
PersistentCache, which wraps an ephemeral cache with a YAML snapshot
on disk so a restarted collector does not have to wait for every
exporter to resend its templates.

basicList, subTemplateList, and subTemplateMultiList (RFC 6313) and
enterprise-specific information elements are out of scope; fields of
those kinds are rejected by VerifyTemplate rather than silently
misdecoded.
*/
package ipfix
