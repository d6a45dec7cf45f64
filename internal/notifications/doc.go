// Package notifications delivers best-effort push notifications via ntfy.
//
// Delivery failures are returned to the caller for logging but must never
// influence queue state; every call site treats errors as advisory. When no
// topic is configured a no-op service is used.
package notifications
