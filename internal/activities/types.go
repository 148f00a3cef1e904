package activities

// FeatureSyncResult contains the result of an outbound feature sync
type FeatureSyncResult struct {
	FeatureID   int64
	Action      string
	IssueNumber int
	HTMLURL     string
}
