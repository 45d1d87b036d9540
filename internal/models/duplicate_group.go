package models

// DuplicateGroup is one set of records sharing byte-identical trimmed content.
// KeepID is the member with the earliest created_at; RemoveIDs are the rest.
type DuplicateGroup struct {
	Content   string   `json:"content_preview"`
	MemberIDs []string `json:"member_ids"`
	KeepID    string   `json:"keep_id"`
	RemoveIDs []string `json:"remove_ids"`
}

// SimilarityCluster groups records by cosine similarity to the cluster's
// first (representative) member. Membership is decided against the
// representative only, not pairwise among members.
type SimilarityCluster struct {
	RepresentativeID string    `json:"representative_id"`
	MemberIDs        []string  `json:"member_ids"`
	Scores           []float64 `json:"similarity_scores"`
}

// RemovalStats summarizes one exact-duplicate pass. A dry run fills the same
// fields as a confirmed run so the two can be compared directly.
type RemovalStats struct {
	TotalRecords    int              `json:"total_records"`
	DuplicateGroups int              `json:"duplicate_groups"`
	RemovedIDs      []string         `json:"removed_ids"`
	KeptIDs         []string         `json:"kept_ids"`
	DryRun          bool             `json:"dry_run"`
	Groups          []DuplicateGroup `json:"groups,omitempty"`
}
