// Package dto holds the plain value types shared by the evaluation
// engine, the synchronizers, and the storage layer: flags, conditions,
// matchers, segments, keys, impressions, and events.
package dto

import "errors"

// MaxKeyLength is the longest a matching or bucketing key may be.
const MaxKeyLength = 250

// ErrKeyTooLong is returned by NewKey when either field exceeds MaxKeyLength.
var ErrKeyTooLong = errors.New("dto: key exceeds maximum length")

// ErrKeyEmpty is returned by NewKey when the matching key is empty.
var ErrKeyEmpty = errors.New("dto: matching key must not be empty")

// Key pairs a matching key with a bucketing key. When only one value is
// supplied, both fields are set to it.
type Key struct {
	MatchingKey  string
	BucketingKey string
}

// NewKey builds a Key from a matching key alone, using it for bucketing too.
func NewKey(matchingKey string) (Key, error) {
	return NewKeyPair(matchingKey, matchingKey)
}

// NewKeyPair builds a Key from distinct matching/bucketing keys. If
// bucketingKey is empty, it defaults to matchingKey.
func NewKeyPair(matchingKey, bucketingKey string) (Key, error) {
	if matchingKey == "" {
		return Key{}, ErrKeyEmpty
	}
	if bucketingKey == "" {
		bucketingKey = matchingKey
	}
	if len(matchingKey) > MaxKeyLength || len(bucketingKey) > MaxKeyLength {
		return Key{}, ErrKeyTooLong
	}
	return Key{MatchingKey: matchingKey, BucketingKey: bucketingKey}, nil
}
