package workspace

import "strings"

// DefaultPartitionKey is the storage key used when no identity is assumed.
const DefaultPartitionKey = "query_page_state"

// IdentityProvider supplies the assumed-identity markers. The session marker
// is short-lived and wins over the longer-lived persistent marker. Either may
// be empty.
type IdentityProvider interface {
	SessionMarker() string
	PersistentMarker() string
}

// StaticIdentity is an IdentityProvider with fixed markers.
type StaticIdentity struct {
	Session    string
	Persistent string
}

// SessionMarker returns the session marker.
func (s StaticIdentity) SessionMarker() string { return s.Session }

// PersistentMarker returns the persistent marker.
func (s StaticIdentity) PersistentMarker() string { return s.Persistent }

// PartitionKeyFor returns the storage key for an assumed identity.
func PartitionKeyFor(identity string) string {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return DefaultPartitionKey
	}
	return DefaultPartitionKey + ":" + identity
}

// PartitionResolver derives the storage partition key from the identity
// markers, so each assumed identity gets a disjoint partition.
type PartitionResolver struct {
	identity IdentityProvider
}

// NewPartitionResolver creates a resolver. A nil provider always resolves to
// DefaultPartitionKey.
func NewPartitionResolver(identity IdentityProvider) *PartitionResolver {
	return &PartitionResolver{identity: identity}
}

// Identity returns the assumed identity, or "" when none is set.
func (r *PartitionResolver) Identity() string {
	if r == nil || r.identity == nil {
		return ""
	}
	if id := strings.TrimSpace(r.identity.SessionMarker()); id != "" {
		return id
	}
	return strings.TrimSpace(r.identity.PersistentMarker())
}

// ResolveKey returns the storage key for the current identity. Each marker is
// read at most once per call.
func (r *PartitionResolver) ResolveKey() string {
	return PartitionKeyFor(r.Identity())
}
