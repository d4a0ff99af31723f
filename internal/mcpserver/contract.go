package mcpserver

// AdminContract describes the conventions LLM consumers must follow when
// reading and mutating admin records through the tools below.
const AdminContract = `# Raido Admin Tool Contract

Every mutation issued through these tools MUST follow this contract.

## Resources

Call ` + "`" + `list_resources` + "`" + ` first. Each resource name (orders, products, users, ...)
is the first argument to every other tool. Unknown resource names are rejected.

## Records

Records are flat JSON objects. Field names vary between resources: a display
name may arrive as ` + "`" + `name` + "`" + `, ` + "`" + `fullName` + "`" + `, ` + "`" + `companyName` + "`" + ` or ` + "`" + `storeName` + "`" + `. Read before
you write: fetch the record with ` + "`" + `get_record` + "`" + ` and reuse the field names it has.

## Rules

1. **Payloads are JSON objects.** The ` + "`" + `payload` + "`" + ` argument of create, update and
   transition tools is a JSON object string, e.g. ` + "`" + `{"status": "active"}` + "`" + `.
2. **IDs are opaque strings.** Pass them back exactly as received; hyphenless
   32-character identifiers are normalized server-side.
3. **Transitions are named actions** (` + "`" + `status` + "`" + `, ` + "`" + `verify` + "`" + `, ` + "`" + `reject` + "`" + `, ` + "`" + `toggle` + "`" + `) and
   only apply to resources that declare them. A ` + "`" + `status` + "`" + ` transition requires a
   ` + "`" + `{"status": "..."}` + "`" + ` payload; ` + "`" + `reject` + "`" + ` accepts an optional ` + "`" + `{"reason": "..."}` + "`" + `.
4. **Busy means retry later.** A mutation answered with a busy error is already
   in flight for that record; do not re-issue it in a loop.
5. **Listings are paginated.** Use ` + "`" + `page` + "`" + ` and ` + "`" + `limit` + "`" + ` instead of requesting
   everything at once; ` + "`" + `total` + "`" + ` in the response tells you when to stop.
`
