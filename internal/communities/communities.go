// Package communities lets admins create communities that members join
// with a shareable join code.
package communities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ident"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ids"
)

type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Private     bool      `json:"private"`
	JoinCode    string    `json:"join_code,omitempty"`
	OwnerID     string    `json:"owner_id"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateInput struct {
	Name        string
	Description string
	Private     bool
}

var (
	ErrInvalidName        = apperr.Validation("invalid_name", "name must be between 3 and 80 characters")
	ErrInvalidDescription = apperr.Validation("invalid_description", "description must be at most 500 characters")
	ErrInvalidCode        = apperr.Validation("invalid_code", "join code has the wrong length or characters")
	ErrCodeNotFound       = apperr.NotFound("code_not_found", "no community has this join code")
	ErrAlreadyMember      = apperr.Precondition("already_member", "you are already a member of this community")

	// ErrJoinCodeTaken is returned by Store.CreateCommunity when the code
	// was claimed concurrently.
	ErrJoinCodeTaken = errors.New("communities: join code already taken")
)

// Store persists communities and memberships. CreateCommunity also records
// the owner as the first member.
type Store interface {
	JoinCodeExists(ctx context.Context, code string) (bool, error)
	CreateCommunity(ctx context.Context, c Community) (Community, error)
	FindCommunityByJoinCode(ctx context.Context, code string) (Community, error)
	AddMember(ctx context.Context, communityID, userID string) error
	ListCommunitiesForUser(ctx context.Context, userID string) ([]Community, error)
	ListPublicCommunities(ctx context.Context, limit int) ([]Community, error)
}

type Authorizer interface {
	Require(ctx context.Context, userID string, c auth.Capability) error
}

type Service struct {
	store      Store
	gate       Authorizer
	gen        *ident.Generator
	codeLength int
}

func NewService(store Store, gate Authorizer, gen *ident.Generator, codeLength int) *Service {
	return &Service{store: store, gate: gate, gen: gen, codeLength: codeLength}
}

// Create makes a new community owned by actorID. Requires create_community.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (Community, error) {
	if err := s.gate.Require(ctx, actorID, auth.CapCreateCommunity); err != nil {
		return Community{}, err
	}
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 80 {
		return Community{}, ErrInvalidName
	}
	desc := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(desc) > 500 {
		return Community{}, ErrInvalidDescription
	}

	checker := ident.CheckerFunc(s.store.JoinCodeExists)
	for attempt := 0; attempt < 3; attempt++ {
		code, err := s.gen.Generate(ctx, ident.JoinCode(s.codeLength), checker)
		if err != nil {
			return Community{}, fmt.Errorf("generate join code: %w", err)
		}
		c, err := s.store.CreateCommunity(ctx, Community{
			ID:          ids.New(),
			Name:        name,
			Description: desc,
			Private:     in.Private,
			JoinCode:    code,
			OwnerID:     actorID,
			MemberCount: 1,
			CreatedAt:   time.Now().UTC(),
		})
		if errors.Is(err, ErrJoinCodeTaken) {
			continue
		}
		return c, err
	}
	return Community{}, fmt.Errorf("create community: %w", ident.ErrExhausted)
}

// Join adds userID to the community owning code.
func (s *Service) Join(ctx context.Context, userID, code string) (Community, error) {
	code = ident.NormalizeCode(code)
	if !ident.ValidCode(code, s.codeLength) {
		return Community{}, ErrInvalidCode
	}
	c, err := s.store.FindCommunityByJoinCode(ctx, code)
	if err != nil {
		return Community{}, err
	}
	if err := s.store.AddMember(ctx, c.ID, userID); err != nil {
		return Community{}, err
	}
	c.MemberCount++
	return c, nil
}

// ListForUser returns the communities userID belongs to.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Community, error) {
	return s.store.ListCommunitiesForUser(ctx, userID)
}

// ListPublic returns public communities, newest first.
func (s *Service) ListPublic(ctx context.Context, limit int) ([]Community, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.store.ListPublicCommunities(ctx, limit)
}
