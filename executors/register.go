package executors

import "github.com/session-mesh/jobengine/engine"

// RegisterAll builds the engine's Executor Registry with every
// variant's descriptor (engine.StandardDescriptors) bound to its
// Execute function defined in this package, then registers them on
// reg. Call this once at process startup.
func RegisterAll(reg *engine.Registry) {
	execs := map[engine.Variant]engine.ExecuteFunc{
		engine.VariantAttachmentDownload:        AttachmentDownload,
		engine.VariantAttachmentUpload:          AttachmentUpload,
		engine.VariantMessageSend:               MessageSend,
		engine.VariantSendReadReceipts:          SendReadReceipts,
		engine.VariantExpirationUpdate:          ExpirationUpdate,
		engine.VariantGetExpiration:             GetExpiration,
		engine.VariantFailedAttachmentDownloads: FailedAttachmentDownloads,
		engine.VariantGarbageCollection:         GarbageCollection,
		engine.VariantRetrieveDefaultOpenGroups:  RetrieveDefaultOpenGroupRooms,
		engine.VariantUpdateProfilePicture:       UpdateProfilePicture,
		engine.VariantCheckForAppUpdates:         CheckForAppUpdates,
		engine.VariantGroupLeaving:               GroupLeaving,
		engine.VariantDisappearingMessages:       DisappearingMessages,
	}
	for _, desc := range engine.StandardDescriptors() {
		desc.Execute = execs[desc.Variant]
		reg.Register(desc)
	}
}
