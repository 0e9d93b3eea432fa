// models.go defines the persistence types shared by every component.
// Implementations handle the actual database operations while consumers in
// internal/auth, internal/lock, internal/lifecycle, internal/comment, and
// internal/attachment depend only on the Store interface in interfaces.go.
package store

// Role is one of the four capability roles a principal can hold.
type Role string

const (
	RoleAuthor   Role = "Author"
	RoleReviewer Role = "Reviewer"
	RoleApprover Role = "Approver"
	RoleAdmin    Role = "DMS_Admin"
)

// Principal is a system user: identity, credential, roles, and single-session
// state. Principals are never deleted, only deactivated, so that audit
// entries referencing them remain resolvable (spec.md §3).
type Principal struct {
	ID                  string
	Username            string
	CredentialHash      string
	Active              bool
	Roles               []Role
	ActiveSessionToken  *string
	SessionIssuedAt     *int64
	SessionExpiresAt    *int64
	SessionLastActivity *int64
	CreatedAt           int64
	UpdatedAt           int64
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// Document is the top-level SOP record; it exclusively owns its versions.
type Document struct {
	ID                string
	DocumentNumber    string
	Title             string
	Description       string
	Department        string
	Tags              []string
	OwnerID           string
	CurrentVersionID  *string
	CreatedAt         int64
	UpdatedAt         int64
	DeletedAt         *int64
}

// VersionStatus is one of the eight lifecycle states a DocumentVersion can
// occupy (spec.md §3).
type VersionStatus string

const (
	StatusDraft            VersionStatus = "Draft"
	StatusUnderReview      VersionStatus = "Under Review"
	StatusPendingApproval  VersionStatus = "Pending Approval"
	StatusApproved         VersionStatus = "Approved"
	StatusEffective        VersionStatus = "Effective"
	StatusObsolete         VersionStatus = "Obsolete"
	StatusRejected         VersionStatus = "Rejected"
	StatusArchived         VersionStatus = "Archived"
)

// ChangeType distinguishes a semantic-versioning minor bump from a major one.
type ChangeType string

const (
	ChangeMinor ChangeType = "Minor"
	ChangeMajor ChangeType = "Major"
)

// DocumentVersion is one version of a document's content plus its workflow
// state. Versions with Status in {Approved, Effective, Obsolete, Archived}
// are immutable (I4); only Publish may move a version into Effective or
// Obsolete (Archive moves one out of them).
type DocumentVersion struct {
	ID              string
	DocumentID      string
	VersionNumber   int
	VersionString   string
	Status          VersionStatus
	Content         string
	ContentHash     string
	ChangeSummary   string
	ChangeType      *ChangeType
	ChangeReason    *string
	ParentVersionID *string
	IsLatest        bool
	ReplacedBy      *string
	LockVersion     int64

	SubmittedAt *int64
	SubmittedBy *string
	ReviewedAt  *int64
	ReviewedBy  *string
	ApprovedAt  *int64
	ApprovedBy  *string
	RejectedAt  *int64
	RejectedBy  *string
	PublishedAt *int64
	PublishedBy *string
	ArchivedAt  *int64
	ArchivedBy  *string
	EffectiveAt *int64
	ObsoleteAt  *int64

	CreatedAt int64
	UpdatedAt int64
}

// Immutable reports whether the version's content, hash, and version string
// must never change again (I4).
func (v *DocumentVersion) Immutable() bool {
	switch v.Status {
	case StatusApproved, StatusEffective, StatusObsolete, StatusArchived:
		return true
	default:
		return false
	}
}

// EditLock is a time-bounded exclusive lease permitting mutation of a Draft
// version. At most one active (non-expired) lock exists per version.
type EditLock struct {
	VersionID     string
	Token         string
	HolderID      string
	SessionTag    *string
	AcquiredAt    int64
	ExpiresAt     int64
	LastHeartbeat int64
}

// Comment is a text-anchored annotation on a non-draft version. The anchor
// is advisory: AnchorText is the canonical payload, the offsets and context
// snippet are hints only (spec.md §4.6).
type Comment struct {
	ID            string
	VersionID     string
	AuthorID      string
	Body          string
	AnchorText    string
	AnchorStart   *int
	AnchorEnd     *int
	AnchorContext *string
	IsResolved    bool
	ResolvedBy    *string
	ResolvedAt    *int64
	CreatedAt     int64
	UpdatedAt     int64
}

// Attachment is an immutable, content-addressed binary file owned by either
// a document or a version (never both).
type Attachment struct {
	ID          string
	Filename    string
	SHA256      string
	ByteSize    int64
	MimeType    string
	UploaderID  string
	DocumentID  *string
	VersionID   *string
	DeletedAt   *int64
	CreatedAt   int64
}

// AuditEntry is one append-only record of a state-changing operation.
type AuditEntry struct {
	ID           string
	PrincipalID  *string
	Username     string
	Action       string
	EntityKind   string
	EntityID     string
	Description  string
	Detail       map[string]any
	ESignature   bool
	IP           *string
	UserAgent    *string
	CreatedAt    int64
}

// Stats provides aggregate store statistics for operational visibility.
type Stats struct {
	Documents      int64
	DeletedDocs    int64
	TotalVersions  int64
	EffectiveDocs  int64
	OpenLocks      int64
	OpenComments   int64
	Attachments    int64
	AuditEntries   int64
}
