package model

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

type TeamRequestType string

const (
	RequestTypeChangeCaptain TeamRequestType = "change_captain"
	RequestTypeAddMember     TeamRequestType = "add_member"
	RequestTypeRemoveMember  TeamRequestType = "remove_member"
)

// IdentityChangeRequest is a pending rename of a player. NewGameID equal
// to GameID means only the class changes; an empty NewClass means only
// the id changes.
type IdentityChangeRequest struct {
	ID        int64         `json:"id"`
	GameID    string        `json:"game_id" validate:"required"`
	NewGameID string        `json:"new_game_id" validate:"required"`
	NewClass  string        `json:"new_class"`
	Status    RequestStatus `json:"status"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
}

// TeamChangeRequest is a pending membership mutation. A remove_member
// request targeting the captain is rewritten into change_captain at
// submission time; OriginalRequest and MemberToRemove keep the audit
// trail of what was actually asked for.
type TeamChangeRequest struct {
	ID              int64           `json:"id"`
	TeamID          int             `json:"team_id" validate:"required"`
	RequestType     TeamRequestType `json:"request_type" validate:"required"`
	RequesterID     string          `json:"requester_id" validate:"required"`
	CurrentCaptain  string          `json:"current_captain"`
	ProposedCaptain string          `json:"proposed_captain,omitempty"`
	MemberToAdd     string          `json:"member_to_add,omitempty"`
	MemberToRemove  string          `json:"member_to_remove,omitempty"`
	OriginalRequest string          `json:"original_request,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Status          RequestStatus   `json:"status"`
	CreatedAt       *time.Time      `json:"created_at,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}
