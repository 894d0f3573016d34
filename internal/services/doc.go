// package services contains the HTTP clients for both upstreams.
//
// All Tidal traffic flows through [PagedClient], the single choke point for
// request pacing, token refresh, and rate-limit backoff. [TidalService] and
// [LastFMService] expose typed operations on top of the raw clients;
// [CredentialManager] owns the access/refresh token pair for the session.
package services
