package executors

import (
	"bytes"
	"context"

	"github.com/session-mesh/jobengine/engine"
)

// UpdateProfilePictureDetails identifies the local profile image to
// (re-)upload and advertise in the user's config.
type UpdateProfilePictureDetails struct {
	LocalPath string `json:"localPath"`
	Auth      string `json:"auth,omitempty"`
}

// UpdateProfilePicture re-encrypts and re-uploads the local profile
// picture, recurring on the Runner's own schedule (no fixed interval
// is named by the variant table beyond "recurring").
func UpdateProfilePicture(ctx context.Context, job *engine.Job, rc *engine.Context) (engine.Outcome, error) {
	d, err := decodeDetails[UpdateProfilePictureDetails](job)
	if err != nil {
		return engine.Outcome{}, engine.MissingRequiredDetailsError{Reason: err.Error()}
	}

	plaintext, err := rc.FS.Contents(d.LocalPath)
	if err != nil {
		return engine.Outcome{}, engine.TransientIO(err)
	}

	if err := engine.CheckCancelled(ctx); err != nil {
		return engine.Outcome{}, err
	}

	ciphertext, err := rc.Crypto.EncryptAttachment(plaintext, nil)
	if err != nil {
		return engine.Outcome{}, engine.PermanentFailureError{Cause: err}
	}

	req, err := rc.Network.PrepareUpload(bytes.NewReader(ciphertext), d.Auth)
	if err != nil {
		return engine.Outcome{}, engine.TransientNetwork(err)
	}
	if _, err := req.Send(ctx); err != nil {
		return classifyNetworkSendError(err)
	}

	return engine.Outcome{}, nil
}
