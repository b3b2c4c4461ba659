package session

import (
	"context"
	"errors"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/dbx"
	"github.com/PromptVision-AI/promptvision-app/internal/server/models"
	"github.com/PromptVision-AI/promptvision-app/internal/server/recordstore"
	"github.com/PromptVision-AI/promptvision-app/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var ErrSaveFailed = errors.New("session save failed")

// Store persists States in the sessions table.
type Store struct {
	db  dbx.DBTX
	rm  repomanager.RepositoryManager
	ttl time.Duration
	now func() time.Time
}

func NewStore(db dbx.DBTX, rm repomanager.RepositoryManager, ttl time.Duration) *Store {
	return &Store{db: db, rm: rm, ttl: ttl, now: time.Now}
}

// New returns an unsaved anonymous State with a fresh id.
func (s *Store) New() *State {
	return &State{ID: uuid.NewString(), ExpiresAt: s.now().UTC().Add(s.ttl)}
}

// Load returns the stored State for id, or nil when it is unknown or
// expired.
func (s *Store) Load(ctx context.Context, id string) *State {
	if id == "" {
		return nil
	}
	row := s.rm.Sessions(s.db).GetByID(ctx, id)
	if row == nil {
		return nil
	}
	if !row.ExpiresAt.After(s.now()) {
		s.rm.Sessions(s.db).DeleteByID(ctx, id)
		return nil
	}
	return fromModel(row)
}

// Save writes st and slides its expiry forward.
func (s *Store) Save(ctx context.Context, st *State) error {
	now := s.now().UTC()
	st.ExpiresAt = now.Add(s.ttl)

	tbl := s.rm.Sessions(s.db)
	row := toModel(st)

	updated := tbl.UpdateByID(ctx, st.ID, recordstore.Fields{
		"user_id":       row.UserID,
		"user_email":    row.UserEmail,
		"access_token":  row.AccessToken,
		"refresh_token": row.RefreshToken,
		"updated_at":    now,
		"expires_at":    row.ExpiresAt,
	})
	if updated != nil {
		return nil
	}

	row.CreatedAt = now
	row.UpdatedAt = now
	if tbl.Insert(ctx, row) == nil {
		return ErrSaveFailed
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) {
	s.rm.Sessions(s.db).DeleteByID(ctx, id)
}

func fromModel(m *models.Session) *State {
	return &State{
		ID:           m.ID,
		UserID:       deref(m.UserID),
		UserEmail:    deref(m.UserEmail),
		AccessToken:  deref(m.AccessToken),
		RefreshToken: deref(m.RefreshToken),
		ExpiresAt:    m.ExpiresAt,
	}
}

func toModel(st *State) *models.Session {
	return &models.Session{
		ID:           st.ID,
		UserID:       ref(st.UserID),
		UserEmail:    ref(st.UserEmail),
		AccessToken:  ref(st.AccessToken),
		RefreshToken: ref(st.RefreshToken),
		ExpiresAt:    st.ExpiresAt,
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
