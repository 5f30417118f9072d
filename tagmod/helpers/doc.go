// Helpers for pulling candidate image URLs out of chat messages and cleaning them up before they are sent to the image tag service.
//
// Nothing in this package does network I/O.
package helpers
