// Client for the Derpibooru JSON API, used to find the tags of an image either by booru image id or by reverse image search on a URL.
//
// Failures which are worth retrying (network errors, timeouts, rate limiting, server errors) wrap ErrTransient, so callers can tell "service unavailable" apart from "service responded, no tags".
package derpi
