package fanout

import "github.com/google/uuid"

// BroadcastChannel reaches every connected client.
const BroadcastChannel = "*"

func RequestChannel(id uuid.UUID) string  { return "request:" + id.String() }
func UnitChannel(id uuid.UUID) string     { return "unit:" + id.String() }
func BuildingChannel(id uuid.UUID) string { return "building:" + id.String() }
func UserChannel(id uuid.UUID) string     { return userChannelPrefix + id.String() }

const userChannelPrefix = "user:"

// Channels lists every channel an event is published on, broadcast first.
func Channels(ev Event) []string {
	chans := []string{BroadcastChannel}

	if ev.RequestID != nil {
		chans = append(chans, RequestChannel(*ev.RequestID))
	}

	if ev.UnitID != nil {
		chans = append(chans, UnitChannel(*ev.UnitID))
	}

	if ev.BuildingID != nil {
		chans = append(chans, BuildingChannel(*ev.BuildingID))
	}

	return chans
}
