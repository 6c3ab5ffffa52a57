// Package services holds the client operations that do not own long-lived
// state: catalog browsing, management of the user's own courses, and account
// changes. Session and cart state live in their own stores; services only
// read them or ask them to refresh.
package services
