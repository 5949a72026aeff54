package domain

// GroupMembershipRequest asks the control plane to add exactly one subscriber
// identity to a group. UserID wins when both identities are set.
type GroupMembershipRequest struct {
	UserID       string `json:"userId" validate:"omitempty,max=128,excludesall=/?#"`
	ConnectionID string `json:"connectionId" validate:"omitempty,max=256,excludesall=/?#"`
	GroupID      string `json:"farmId" validate:"required,max=128,excludesall=/?#"`
}

// GroupMembershipResult echoes which identity was added to which group.
type GroupMembershipResult struct {
	StatusCode int
	Identity   string // "user <id>" or "connection <id>"
	GroupName  string
}
