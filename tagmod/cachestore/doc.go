// Cache of image tag lookup results, keyed by image reference (see helpers.ImageRef.Key), with a fixed TTL.
//
// Includes an interface and implementations using redis and in-process memory.
//
// The moderation engine uses this so that re-posted images and edited messages don't repeat calls to the tag service. Only successful lookups should be stored; an empty result is a valid entry (no matching images).
package cachestore
