package campus

import "fmt"

const toBeAnnounced = "TBA"

// LocationKind tags the Location variants. Consumers are expected to switch
// over the kind exhaustively; a room string is only meaningful for
// LocationResolved.
type LocationKind int

const (
	// LocationResolved is a known building and room.
	LocationResolved LocationKind = iota
	// LocationTBA means the site has not announced the location yet.
	LocationTBA
	// LocationUnknown means the site printed nothing at all. Distinct from
	// TBA: unknown locations are usually a data defect, not a pending one.
	LocationUnknown
)

// Location is where a meeting is held.
type Location struct {
	Kind       LocationKind
	Building   Building
	RoomNumber string
}

// NewLocation classifies the building/room cell pair from a results row.
// Both empty means the location is genuinely unknown; a "TBA" in either cell
// means to-be-announced; anything else must resolve against the building
// registry or the row is structurally bad.
func NewLocation(reg *Registry, buildingCode, room string) (Location, error) {
	switch {
	case buildingCode == "" && room == "":
		return Location{Kind: LocationUnknown}, nil
	case buildingCode == toBeAnnounced || room == toBeAnnounced:
		return Location{Kind: LocationTBA}, nil
	case buildingCode == "" || room == "":
		return Location{}, fmt.Errorf("vague location: building %q room %q", buildingCode, room)
	}
	b, ok := reg.Lookup(buildingCode)
	if !ok {
		return Location{}, fmt.Errorf("no building known by code %q", buildingCode)
	}
	return Location{Kind: LocationResolved, Building: b, RoomNumber: room}, nil
}

func (l Location) String() string {
	switch l.Kind {
	case LocationTBA:
		return "(TBA)"
	case LocationUnknown:
		return "(Unknown)"
	default:
		return fmt.Sprintf("%s %s", l.Building.Name, l.RoomNumber)
	}
}

// Equal reports whether two locations refer to the same place. TBA and
// Unknown compare by kind only.
func (l Location) Equal(o Location) bool {
	if l.Kind != o.Kind {
		return false
	}
	if l.Kind != LocationResolved {
		return true
	}
	return l.Building.Code == o.Building.Code && l.RoomNumber == o.RoomNumber
}
