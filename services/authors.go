package services

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-erp/models"
)

// InternalIdentity is the directory record resolved for an internal author.
type InternalIdentity struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation,omitempty"`
	Type        string `json:"type"`
}

// AuthorRegistry resolves internal identities and validates author additions.
type AuthorRegistry struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewAuthorRegistry creates the registry.
func NewAuthorRegistry(db *gorm.DB, logger *zap.Logger) *AuthorRegistry {
	return &AuthorRegistry{DB: db, Logger: logger}
}

// ResolveInternal looks a UID up in the employee directory, then the student
// directory.
func (r *AuthorRegistry) ResolveInternal(uid string) (*InternalIdentity, error) {
	var emp models.Employee
	err := r.DB.Where("uid = ?", uid).First(&emp).Error
	if err == nil {
		return &InternalIdentity{
			UID:         emp.UID,
			Name:        emp.Name,
			Email:       emp.Email,
			Designation: emp.Designation,
			Type:        models.AuthorFaculty,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var stu models.Student
	err = r.DB.Where("uid = ?", uid).First(&stu).Error
	if err == nil {
		return &InternalIdentity{
			UID:   stu.UID,
			Name:  stu.Name,
			Email: stu.Email,
			Type:  models.AuthorStudent,
		}, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, E(CodeNotFound, "no directory entry for uid "+uid)
	}
	return nil, err
}

// AuthorDraft is the payload for adding or replacing one author.
type AuthorDraft struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Role        string `json:"role"`
	UID         string `json:"uid"`
	Email       string `json:"email"`
	Designation string `json:"designation"`
	Affiliation string `json:"affiliation"`
}

// AddAuthor validates the draft against the contribution's existing author
// list and returns the author row ready for insertion. replaceID, when
// non-zero, names an existing author slot being edited so its current roles do
// not count against the one-First/one-Corresponding invariant.
func (r *AuthorRegistry) AddAuthor(contribution *models.Contribution, draft AuthorDraft, replaceID uint) (*models.Author, error) {
	if draft.Name == "" {
		return nil, EFields("invalid author", FieldError{Field: "name", Message: "name is required"})
	}
	if draft.Role != models.RoleFirst && draft.Role != models.RoleCorresponding &&
		draft.Role != models.RoleFirstCorresponding && draft.Role != models.RoleCoAuthor {
		return nil, EFields("invalid author", FieldError{Field: "role", Message: "unknown author role"})
	}

	author := models.Author{
		ContributionID: contribution.ID,
		Name:           draft.Name,
		Category:       draft.Category,
		Type:           draft.Type,
		Role:           draft.Role,
		Email:          draft.Email,
		Designation:    draft.Designation,
		Affiliation:    draft.Affiliation,
	}

	switch draft.Category {
	case models.CategoryInternal:
		if draft.UID == "" {
			return nil, EFields("invalid author", FieldError{Field: "uid", Message: "internal authors require a uid"})
		}
		ident, err := r.ResolveInternal(draft.UID)
		if err != nil {
			return nil, err
		}
		if draft.UID == contribution.ApplicantUID && draft.Role == models.RoleCoAuthor {
			return nil, E(CodeForbidden, "applicant cannot add themselves as a co-author")
		}
		author.UID = ident.UID
		author.Email = ident.Email
		if author.Type == "" {
			author.Type = ident.Type
		}
		if author.Designation == "" {
			author.Designation = ident.Designation
		}
	case models.CategoryExternal:
		if draft.Affiliation == "" {
			return nil, EFields("invalid author", FieldError{Field: "affiliation", Message: "external authors require an affiliation"})
		}
	default:
		return nil, EFields("invalid author", FieldError{Field: "category", Message: "must be internal or external"})
	}

	for i := range contribution.Authors {
		existing := &contribution.Authors[i]
		if existing.ID == replaceID {
			continue
		}
		if author.UID != "" && existing.UID == author.UID {
			return nil, E(CodeConflict, "author with uid "+author.UID+" already listed")
		}
		if existing.HoldsFirst() && (author.Role == models.RoleFirst || author.Role == models.RoleFirstCorresponding) {
			return nil, E(CodeInvalidAuthorConfig, "contribution already has a first author")
		}
		if existing.HoldsCorresponding() && (author.Role == models.RoleCorresponding || author.Role == models.RoleFirstCorresponding) {
			return nil, E(CodeInvalidAuthorConfig, "contribution already has a corresponding author")
		}
	}

	return &author, nil
}
