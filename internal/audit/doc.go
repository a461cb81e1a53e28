// Package audit records who changed what through the HTTP API.
//
// Every accepted mutation (placing or removing a stove, lighting it,
// loading items, editing blocks) appends one Entry to the audit_log table.
// Entries are never updated. The API exposes them, newest first, at
// GET /api/v1/audit.
package audit
