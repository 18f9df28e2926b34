package executors

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/session-mesh/jobengine/engine"
)

// DefaultOpenGroupRoom is one room returned by the community server's
// default-rooms listing endpoint.
type DefaultOpenGroupRoom struct {
	RoomToken   string `json:"roomToken"`
	Name        string `json:"name"`
	ImageID     string `json:"imageId,omitempty"`
	Description string `json:"description,omitempty"`
}

// RetrieveDefaultOpenGroupRoomsDetails carries the community server's
// base URL to query.
type RetrieveDefaultOpenGroupRoomsDetails struct {
	ServerURL string `json:"serverUrl"`
}

// RetrieveDefaultOpenGroupRooms fetches the community server's
// published default-rooms list once, via the batch-prepare endpoint
// (no dedicated network verb exists for it in section 6, so it rides
// the generic prepareBatch call).
func RetrieveDefaultOpenGroupRooms(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[RetrieveDefaultOpenGroupRoomsDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	req, err := rc.Network.PrepareBatch([][]byte{[]byte(d.ServerURL)})
	if err != nil {
		return engine.Outcome{}, engine.TransientNetwork(err)
	}
	resp, err := req.Send(ctx)
	if err != nil {
		return classifyNetworkSendError(err)
	}

	var rooms []DefaultOpenGroupRoom
	for _, raw := range resp.Results {
		var room DefaultOpenGroupRoom
		if err := json.Unmarshal(raw, &room); err != nil {
			continue
		}
		rooms = append(rooms, room)
	}

	if rc.Events != nil {
		rc.Events.Emit(ctx, engine.Event{Name: "success", JobID: job.ID, Variant: job.Variant, Attributes: map[string]string{"roomCount": strconv.Itoa(len(rooms))}})
	}

	return engine.Outcome{Stop: true}, nil
}
