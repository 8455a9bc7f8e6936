package config

// Room types that carry stripes, plus the few others a layout may contain.
const (
	RoomEzStraight        = "EzStraight"
	RoomEzCafeteria       = "EzCafeteria"
	RoomEzCollapsedTunnel = "EzCollapsedTunnel"
	RoomEzConference      = "EzConference"
	RoomEzTCross          = "EzTCross"
	RoomEzCrossing        = "EzCrossing"
	RoomEzCurve           = "EzCurve"
	RoomEzIntercom        = "EzIntercom"
	RoomEzGateA           = "EzGateA"
	RoomEzGateB           = "EzGateB"
	RoomEzShelter         = "EzShelter"
	RoomEzPcs             = "EzPcs"
	RoomEzDownstairsPcs   = "EzDownstairsPcs"
	RoomEzUpstairsPcs     = "EzUpstairsPcs"
	RoomHczEzCheckpoint   = "HczEzCheckpoint"
	RoomHczHallway        = "HczHallway"
)

// PrefabConversion maps a stripes prefab (and its bundle file) to the room type it decorates.
var PrefabConversion = map[string]string{
	"ez_straight_stripes":          RoomEzStraight,
	"ez_cafeteria_stripes":         RoomEzCafeteria,
	"ez_collapsed_tunnels_stripes": RoomEzCollapsedTunnel,
	"ez_conference_stripes":        RoomEzConference,
	"ez_three_way_stripes":         RoomEzTCross,
	"ez_crossing_stripes":          RoomEzCrossing,
	"ez_curve_stripes":             RoomEzCurve,
	"ez_intercom_stripes":          RoomEzIntercom,
	"ez_gatea_stripes":             RoomEzGateA,
	"ez_gateb_stripes":             RoomEzGateB,
	"ez_shelter_stripes":           RoomEzShelter,
	"ez_pcs_stripes":               RoomEzPcs,
	"ez_pcs_downstairs_stripes":    RoomEzDownstairsPcs,
	"ez_pcs_upstairs_stripes":      RoomEzUpstairsPcs,
	"ez_hcz_checkpoint_stripes":    RoomHczEzCheckpoint,
}

// CheckpointChild is the child transform stripes are parented under in checkpoint rooms.
const CheckpointChild = "Checkpoint"

// IgnoreMarker flags prefab nodes that are spawned as structure only.
const IgnoreMarker = "(ignore)"

// DefaultColors are the keycard colors stripes pick from at round start.
var DefaultColors = []string{
	"#35493e", // KeycardChaosInsurgency
	"#b6887f", // KeycardContainmentEngineer
	"#ba1846", // KeycardFacilityManager
	"#606770", // KeycardGuard
	"#bcb1e4", // KeycardJanitor
	"#1841c8", // KeycardNTFCommander
	"#5180f7", // KeycardNTFLieutenant
	"#5b5b5b", // KeycardO5
	"#e7d678", // KeycardScientist
	"#ddab20", // KeycardResearchCoordinator
	"#a2cade", // KeycardNTFOfficer
	"#217778", // KeycardZoneManager
	"#FFFFFF", // White
}

// DecoratableRoomType reports whether a stripes prefab exists for the room type.
func DecoratableRoomType(roomType string) bool {
	for _, t := range PrefabConversion {
		if t == roomType {
			return true
		}
	}
	return false
}
