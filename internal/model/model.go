package model

import (
	"fmt"
	"strings"
)

// ListItem is a single row of a remote list. IDs are assigned by the store; 0 means "none".
type ListItem struct {
	ID    int    `json:"Id"`
	Title string `json:"Title"`
}

// ItemVersion is an item as returned by a single-item read, together with the
// ETag the host sent for it.
type ItemVersion struct {
	Item ListItem `json:"item"`
	ETag string   `json:"etag,omitempty"`
}

type TargetMode string

const (
	// TargetSelected operates on the item chosen in the dropdown.
	TargetSelected TargetMode = "selected"
	// TargetLatest operates on the most recently created item (highest id).
	TargetLatest TargetMode = "latest"
)

func ParseTargetMode(s string) (TargetMode, error) {
	switch TargetMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", TargetSelected:
		return TargetSelected, nil
	case TargetLatest:
		return TargetLatest, nil
	default:
		return "", fmt.Errorf("invalid target mode %q (expected selected|latest)", s)
	}
}

type MatchPolicy string

const (
	// MatchWildcard sends IF-MATCH: * (unconditional write).
	MatchWildcard MatchPolicy = "wildcard"
	// MatchETag sends the ETag captured by the preceding read.
	MatchETag MatchPolicy = "etag"
)

func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case MatchWildcard, "*":
		return MatchWildcard, nil
	case MatchETag:
		return MatchETag, nil
	default:
		return "", fmt.Errorf("invalid match policy %q (expected wildcard|etag)", s)
	}
}

// IfMatch returns the IF-MATCH header value for a write made after reading v.
// An etag policy with no captured ETag falls back to nothing; callers treat "" as
// "no header" and the host rejects the write.
func (p MatchPolicy) IfMatch(v ItemVersion) string {
	if p == MatchETag {
		return v.ETag
	}
	return "*"
}

type ConcurrencyPolicy struct {
	Update MatchPolicy `json:"update"`
	Delete MatchPolicy `json:"delete"`
}

// DefaultConcurrencyPolicy overwrites unconditionally on update and requires a
// fresh ETag on delete.
func DefaultConcurrencyPolicy() ConcurrencyPolicy {
	return ConcurrencyPolicy{Update: MatchWildcard, Delete: MatchETag}
}
