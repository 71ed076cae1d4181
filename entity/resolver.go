// Package entity resolves internal calendar users (individuals, groups,
// resources) to canonical attendee data. Resolution returns a tagged
// found/not-found outcome instead of an error so callers never have to
// probe by error code.
package entity

import (
	"context"
	"fmt"

	"github.com/samber/mo"

	"github.com/meridiancal/groupcal/calendar"
)

// Kind classifies a resolved entity.
type Kind int

const (
	KindIndividual Kind = iota
	KindGroup
	KindResource
)

// String provides a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "Group"
	case KindResource:
		return "Resource"
	default:
		return "Individual"
	}
}

// CUType maps the kind onto the attendee calendar-user type.
func (k Kind) CUType() calendar.CUType {
	switch k {
	case KindGroup:
		return calendar.CUTypeGroup
	case KindResource:
		return calendar.CUTypeResource
	default:
		return calendar.CUTypeIndividual
	}
}

// Entity is a resolved internal calendar user.
type Entity struct {
	ID            int
	Kind          Kind
	DisplayName   string
	URI           string
	DefaultFolder string
	Timezone      string
}

// Resolver looks up calendar users. ResolveByID and ResolveURI return
// mo.None when no entity matches; errors are reserved for lookup
// failures.
type Resolver interface {
	ResolveByID(ctx context.Context, id int) (mo.Option[Entity], error)
	ResolveURI(ctx context.Context, uri string) (mo.Option[Entity], error)
	// PrepareAttendee canonicalises a client-submitted attendee record:
	// internal attendees get display data, URI and default folder filled
	// in from the resolved entity.
	PrepareAttendee(ctx context.Context, attendee calendar.Attendee) (calendar.Attendee, error)
}

// StaticResolver is a map-backed Resolver for tests and embedded use.
type StaticResolver struct {
	Entities map[int]Entity
}

// NewStaticResolver creates a resolver over a fixed entity set.
func NewStaticResolver(entities ...Entity) *StaticResolver {
	m := make(map[int]Entity, len(entities))
	for _, e := range entities {
		m[e.ID] = e
	}
	return &StaticResolver{Entities: m}
}

func (r *StaticResolver) ResolveByID(_ context.Context, id int) (mo.Option[Entity], error) {
	if e, ok := r.Entities[id]; ok {
		return mo.Some(e), nil
	}
	return mo.None[Entity](), nil
}

func (r *StaticResolver) ResolveURI(_ context.Context, uri string) (mo.Option[Entity], error) {
	normalized := calendar.NormalizeURI(uri)
	for _, e := range r.Entities {
		if calendar.NormalizeURI(e.URI) == normalized {
			return mo.Some(e), nil
		}
	}
	return mo.None[Entity](), nil
}

func (r *StaticResolver) PrepareAttendee(ctx context.Context, attendee calendar.Attendee) (calendar.Attendee, error) {
	if !attendee.Internal() {
		if attendee.URI == "" {
			return attendee, fmt.Errorf("external attendee without uri")
		}
		if attendee.CUType == "" {
			attendee.CUType = calendar.CUTypeIndividual
		}
		if attendee.PartStat == "" {
			attendee.PartStat = calendar.PartStatNeedsAction
		}
		return attendee, nil
	}
	resolved, err := r.ResolveByID(ctx, attendee.Entity)
	if err != nil {
		return attendee, err
	}
	e, ok := resolved.Get()
	if !ok {
		return attendee, fmt.Errorf("entity %d does not resolve", attendee.Entity)
	}
	attendee.CN = e.DisplayName
	attendee.URI = e.URI
	attendee.CUType = e.Kind.CUType()
	if attendee.Folder == "" {
		attendee.Folder = e.DefaultFolder
	}
	if attendee.PartStat == "" {
		attendee.PartStat = calendar.PartStatNeedsAction
	}
	if attendee.Role == "" {
		attendee.Role = calendar.RoleRequired
	}
	return attendee, nil
}
