package workflows

// SyncAction names the outbound operation a feature sync performs
type SyncAction string

const (
	ActionPublish  SyncAction = "publish"
	ActionPushBody SyncAction = "push_body"
)

// PushBodySignal marks a push-body workflow dirty. Its payload is the
// feature id.
const PushBodySignal = "push-body"

// FeatureSyncInput is the input for the feature sync workflow
type FeatureSyncInput struct {
	FeatureID int64
	Action    SyncAction
}
