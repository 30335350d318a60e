package models

import (
	"time"
)

// DocumentType distinguishes incoming from outgoing correspondence
type DocumentType string

const (
	DocumentTypeIncoming DocumentType = "INCOMING"
	DocumentTypeOutgoing DocumentType = "OUTGOING"
)

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	return t == DocumentTypeIncoming || t == DocumentTypeOutgoing
}

// Stage is the position of a document in its approval lifecycle.
// The set of values is closed; see the workflow package for the legal edges.
type Stage string

const (
	StagePendingRegistration Stage = "PENDING_REGISTRATION"
	StageRegistration        Stage = "REGISTRATION"
	StageResolution          Stage = "RESOLUTION"
	StageAssignment          Stage = "ASSIGNMENT"
	StageExecution           Stage = "EXECUTION"
	StageDrafting            Stage = "DRAFTING"
	StageRevisionRequested   Stage = "REVISION_REQUESTED"
	StageFinalReview         Stage = "FINAL_REVIEW"
	StageSignature           Stage = "SIGNATURE"
	StageDispatch            Stage = "DISPATCH"
	StageCompleted           Stage = "COMPLETED"
	StageOnHold              Stage = "ON_HOLD"
	StageCancelled           Stage = "CANCELLED"
	StageArchived            Stage = "ARCHIVED"
)

// ReviewStatus is the decision state of a single reviewer assignment
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

// OutgoingSource is the fixed source recorded on outgoing documents
const OutgoingSource = "Bank ichki tizimi"

// Document represents a piece of official correspondence
type Document struct {
	ID                 int64                `json:"id" db:"id"`
	Type               DocumentType         `json:"type" db:"type"`
	Stage              Stage                `json:"stage" db:"stage"`
	Title              string               `json:"title" db:"title"`
	Content            string               `json:"content" db:"content"`
	Source             string               `json:"source,omitempty" db:"source"`
	Kartoteka          string               `json:"kartoteka,omitempty" db:"kartoteka"`
	AuthorID           int64                `json:"author_id" db:"author_id"`
	Author             *UserRef             `json:"author,omitempty"`
	MainExecutorID     *int64               `json:"main_executor_id,omitempty" db:"main_executor_id"`
	MainExecutor       *UserRef             `json:"main_executor,omitempty"`
	InternalAssigneeID *int64               `json:"internal_assignee_id,omitempty" db:"internal_assignee_id"`
	InternalAssignee   *UserRef             `json:"internal_assignee,omitempty"`
	CoExecutors        []UserRef            `json:"co_executors"`
	Contributors       []UserRef            `json:"contributors"`
	Deadline           *time.Time           `json:"deadline,omitempty" db:"deadline"`
	StageDeadline      *time.Time           `json:"stage_deadline,omitempty" db:"stage_deadline"`
	ReviewRound        int                  `json:"review_round" db:"review_round"`
	Reviewers          []ReviewerAssignment `json:"reviewers"`
	CreatedAt          time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" db:"updated_at"`
}

// CoExecutorIDs returns the ids of the document's co-executors
func (d *Document) CoExecutorIDs() []int64 {
	return refIDs(d.CoExecutors)
}

// ContributorIDs returns the ids of the document's contributors
func (d *Document) ContributorIDs() []int64 {
	return refIDs(d.Contributors)
}

// IsMainExecutor reports whether userID is the document's main executor
func (d *Document) IsMainExecutor(userID int64) bool {
	return d.MainExecutorID != nil && *d.MainExecutorID == userID
}

// Reviewer returns the current-round assignment held by userID, if any
func (d *Document) Reviewer(userID int64) *ReviewerAssignment {
	for i := range d.Reviewers {
		if d.Reviewers[i].UserID == userID {
			return &d.Reviewers[i]
		}
	}
	return nil
}

func refIDs(refs []UserRef) []int64 {
	ids := make([]int64, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}

// ReviewerAssignment is one reviewer's decision record for one review round
type ReviewerAssignment struct {
	DocumentID int64        `json:"document_id" db:"document_id"`
	Round      int          `json:"round" db:"round"`
	UserID     int64        `json:"user_id" db:"user_id"`
	User       *UserRef     `json:"user,omitempty"`
	Status     ReviewStatus `json:"status" db:"status"`
	Comment    *string      `json:"comment,omitempty" db:"comment"`
	DecidedAt  *time.Time   `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}
