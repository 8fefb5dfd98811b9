package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hulugan-ph/hulugan/internal/auth"
	"github.com/hulugan-ph/hulugan/internal/config"
	"github.com/hulugan-ph/hulugan/internal/db/models"
	"github.com/hulugan-ph/hulugan/internal/repository"
	"github.com/hulugan-ph/hulugan/internal/services/fund"
	"github.com/hulugan-ph/hulugan/internal/services/iam"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memGroupRepository is an in-memory GroupRepository. A sequence counter
// stands in for updated_at so ordering is deterministic in fast tests.
type memGroupRepository struct {
	mu     sync.Mutex
	seq    int64
	groups map[string]*models.Group
	order  map[string]int64
}

func newMemGroupRepository() *memGroupRepository {
	return &memGroupRepository{
		groups: make(map[string]*models.Group),
		order:  make(map[string]int64),
	}
}

func (r *memGroupRepository) Create(_ context.Context, group *models.Group) error {
	if err := group.ValidateForCreate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if group.ID == "" {
		group.ID = fmt.Sprintf("group-%d", r.seq)
	}
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now
	clone := *group
	r.groups[group.ID] = &clone
	r.order[group.ID] = r.seq
	return nil
}

func (r *memGroupRepository) GetByID(_ context.Context, id string) (*models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("group '%s': %w", id, repository.ErrNotFound)
	}
	clone := *group
	return &clone, nil
}

func (r *memGroupRepository) List(_ context.Context) ([]models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	groups := make([]models.Group, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return r.order[groups[i].ID] > r.order[groups[j].ID]
	})
	return groups, nil
}

func (r *memGroupRepository) SetPaidWeeks(_ context.Context, id string, paidWeeks int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	group, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("group '%s': %w", id, repository.ErrNotFound)
	}
	r.seq++
	group.PaidWeeks = paidWeeks
	group.UpdatedAt = time.Now()
	r.order[id] = r.seq
	return nil
}

// stubIAM satisfies iam.Service for handler tests. Requests carrying an
// Authorization header authenticate as the configured principal; requests
// without one are anonymous.
type stubIAM struct {
	principal *iam.Principal

	mu            sync.Mutex
	issuedEmails  []string
	revokedIDs    []string
	redeemSession *models.Session
	redeemBearer  string
	redeemTarget  string
}

func (s *stubIAM) AuthenticateRequest(_ context.Context, req iam.AuthRequest) (*iam.Principal, error) {
	if req.Headers.Get("Authorization") == "" {
		return nil, nil
	}
	if s.principal == nil {
		return nil, fmt.Errorf("invalid session token")
	}
	return s.principal, nil
}

func (s *stubIAM) ResolveRole(context.Context, string) (string, error) {
	if s.principal == nil {
		return models.RoleViewer, nil
	}
	return s.principal.Role, nil
}

func (s *stubIAM) Authorize(_ context.Context, principal *iam.Principal, _ string, act string) (bool, error) {
	if act == fund.ActionRead {
		return true, nil
	}
	return principal.IsAdmin(), nil
}

func (s *stubIAM) IssueLoginToken(_ context.Context, email, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuedEmails = append(s.issuedEmails, email)
	return "signed-link-token", nil
}

func (s *stubIAM) RedeemLoginToken(_ context.Context, tokenString string, _ iam.SessionMetadata) (*models.Session, string, string, error) {
	if tokenString != "valid-token" {
		return nil, "", "", fmt.Errorf("parse login token: invalid signature")
	}
	return s.redeemSession, s.redeemBearer, s.redeemTarget, nil
}

func (s *stubIAM) RevokeSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedIDs = append(s.revokedIDs, sessionID)
	return nil
}

func (s *stubIAM) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func (s *stubIAM) GetOrCreateUser(_ context.Context, email, name string) (*models.User, error) {
	return &models.User{ID: "user-1", Email: email, Name: name}, nil
}

func (s *stubIAM) AssignRole(context.Context, string, string, string) error { return nil }
func (s *stubIAM) RemoveRole(context.Context, string) error                 { return nil }
func (s *stubIAM) CleanupExpired(context.Context) (int64, int64, error)     { return 0, 0, nil }

type recordingMailer struct {
	mu      sync.Mutex
	sends   []string
	failing bool
}

func (m *recordingMailer) SendMagicLink(_ context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return fmt.Errorf("publish magic link: broker unavailable")
	}
	m.sends = append(m.sends, email+" "+link)
	return nil
}

func (m *recordingMailer) Close() error { return nil }

type serverFixture struct {
	router http.Handler
	groups *memGroupRepository
	iam    *stubIAM
	mailer *recordingMailer
}

func newServerFixture(t *testing.T, principal *iam.Principal) *serverFixture {
	t.Helper()

	groups := newMemGroupRepository()
	stub := &stubIAM{
		principal: principal,
		redeemSession: &models.Session{
			ID:        "sess-new",
			UserID:    "user-1",
			ExpiresAt: time.Now().Add(12 * time.Hour),
		},
		redeemBearer: "new-bearer-token",
		redeemTarget: "/dashboard",
	}
	mail := &recordingMailer{}

	fundService := fund.NewService(groups, stub, testLogger())
	router := NewRouter(RouterOptions{
		Fund:   fundService,
		IAM:    stub,
		Mailer: mail,
		Cfg: &config.Config{
			ServerURL: "http://fund.test",
			Auth:      config.AuthConfig{SessionTTL: time.Hour},
		},
		Logger: testLogger(),
	})

	return &serverFixture{router: router, groups: groups, iam: stub, mailer: mail}
}

func adminPrincipal() *iam.Principal {
	return &iam.Principal{
		UserID:    "user-admin",
		Email:     "admin@example.com",
		SessionID: "sess-admin",
		Role:      models.RoleAdmin,
	}
}

func viewerPrincipal() *iam.Principal {
	return &iam.Principal{
		UserID:    "user-viewer",
		Email:     "viewer@example.com",
		SessionID: "sess-viewer",
		Role:      models.RoleViewer,
	}
}

func seedGroups(t *testing.T, fx *serverFixture) (string, string) {
	t.Helper()
	first := &models.Group{Name: "Lunes", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 4}
	second := &models.Group{Name: "Martes", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 0}
	require.NoError(t, fx.groups.Create(context.Background(), first))
	require.NoError(t, fx.groups.Create(context.Background(), second))
	return first.ID, second.ID
}

func doJSON(t *testing.T, fx *serverFixture, method, path string, body interface{}, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer test-token")
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) *fund.Snapshot {
	t.Helper()
	var snapshot fund.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	return &snapshot
}

func TestFundSnapshotEndpoint(t *testing.T) {
	fx := newServerFixture(t, nil)
	_, secondID := seedGroups(t, fx)

	rec := doJSON(t, fx, http.MethodGet, "/api/fund/groups", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	snapshot := decodeSnapshot(t, rec)
	assert.Equal(t, 2, snapshot.Stats.Members)
	assert.Equal(t, 4, snapshot.Stats.MonthWeeks)
	assert.Equal(t, 40.0, snapshot.Stats.TotalCollected)
	assert.Equal(t, 1, snapshot.Stats.FullMonthPaid)
	assert.Equal(t, 40.0, snapshot.Stats.TargetPerMember)

	require.Len(t, snapshot.Groups, 2)
	assert.Equal(t, secondID, snapshot.Groups[0].ID, "most recently written group is listed first")
	assert.Equal(t, 0.0, snapshot.Groups[0].ProgressPercent)
	assert.Equal(t, 100.0, snapshot.Groups[1].ProgressPercent)
}

func TestSetPaidWeeksEndpoint(t *testing.T) {
	t.Run("admin updates a group", func(t *testing.T) {
		fx := newServerFixture(t, adminPrincipal())
		firstID, _ := seedGroups(t, fx)

		rec := doJSON(t, fx, http.MethodPost, "/api/admin/groups/"+firstID+"/paid-weeks",
			SetPaidWeeksRequest{PaidWeeks: 2}, true)
		require.Equal(t, http.StatusOK, rec.Code)

		snapshot := decodeSnapshot(t, rec)
		assert.Equal(t, firstID, snapshot.Groups[0].ID, "updated group moves to the front")
		assert.Equal(t, 2, snapshot.Groups[0].PaidWeeks)
		assert.Equal(t, 20.0, snapshot.Stats.TotalCollected)

		stored, err := fx.groups.GetByID(context.Background(), firstID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.PaidWeeks)
	})

	t.Run("anonymous caller gets 401", func(t *testing.T) {
		fx := newServerFixture(t, nil)
		firstID, _ := seedGroups(t, fx)

		rec := doJSON(t, fx, http.MethodPost, "/api/admin/groups/"+firstID+"/paid-weeks",
			SetPaidWeeksRequest{PaidWeeks: 2}, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		stored, err := fx.groups.GetByID(context.Background(), firstID)
		require.NoError(t, err)
		assert.Equal(t, 4, stored.PaidWeeks, "stored value unchanged")
	})

	t.Run("viewer gets 403", func(t *testing.T) {
		fx := newServerFixture(t, viewerPrincipal())
		firstID, _ := seedGroups(t, fx)

		rec := doJSON(t, fx, http.MethodPost, "/api/admin/groups/"+firstID+"/paid-weeks",
			SetPaidWeeksRequest{PaidWeeks: 2}, true)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("out of range value gets 400", func(t *testing.T) {
		fx := newServerFixture(t, adminPrincipal())
		firstID, _ := seedGroups(t, fx)

		rec := doJSON(t, fx, http.MethodPost, "/api/admin/groups/"+firstID+"/paid-weeks",
			SetPaidWeeksRequest{PaidWeeks: 5}, true)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		stored, err := fx.groups.GetByID(context.Background(), firstID)
		require.NoError(t, err)
		assert.Equal(t, 4, stored.PaidWeeks, "rejected, not clamped")
	})

	t.Run("unknown group gets 404", func(t *testing.T) {
		fx := newServerFixture(t, adminPrincipal())
		seedGroups(t, fx)

		rec := doJSON(t, fx, http.MethodPost, "/api/admin/groups/no-such-group/paid-weeks",
			SetPaidWeeksRequest{PaidWeeks: 1}, true)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed body gets 400", func(t *testing.T) {
		fx := newServerFixture(t, adminPrincipal())
		firstID, _ := seedGroups(t, fx)

		req := httptest.NewRequest(http.MethodPost, "/api/admin/groups/"+firstID+"/paid-weeks",
			strings.NewReader("{not json"))
		req.Header.Set("Authorization", "Bearer test-token")
		rec := httptest.NewRecorder()
		fx.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateGroupEndpoint(t *testing.T) {
	t.Run("admin creates a group", func(t *testing.T) {
		fx := newServerFixture(t, adminPrincipal())

		rec := doJSON(t, fx, http.MethodPost, "/api/admin/groups",
			CreateGroupRequest{Name: "Miyerkules", WeeklyAmount: 10, WeeksTotal: 4}, true)
		require.Equal(t, http.StatusCreated, rec.Code)

		snapshot := decodeSnapshot(t, rec)
		require.Len(t, snapshot.Groups, 1)
		assert.Equal(t, "Miyerkules", snapshot.Groups[0].Name)
		assert.Equal(t, 1, snapshot.Stats.Members)
	})

	t.Run("missing name gets 400", func(t *testing.T) {
		fx := newServerFixture(t, adminPrincipal())

		rec := doJSON(t, fx, http.MethodPost, "/api/admin/groups",
			CreateGroupRequest{WeeklyAmount: 10, WeeksTotal: 4}, true)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("anonymous caller gets 401", func(t *testing.T) {
		fx := newServerFixture(t, nil)

		rec := doJSON(t, fx, http.MethodPost, "/api/admin/groups",
			CreateGroupRequest{Name: "Huwebes", WeeklyAmount: 10, WeeksTotal: 4}, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMagicLinkEndpoint(t *testing.T) {
	t.Run("accepted and mailed", func(t *testing.T) {
		fx := newServerFixture(t, nil)

		rec := doJSON(t, fx, http.MethodPost, "/auth/magic-link",
			MagicLinkRequest{Email: "maria@example.com"}, false)
		require.Equal(t, http.StatusAccepted, rec.Code)

		require.Len(t, fx.mailer.sends, 1)
		assert.Contains(t, fx.mailer.sends[0], "maria@example.com")
		assert.Contains(t, fx.mailer.sends[0], "http://fund.test/auth/verify?token=signed-link-token")
	})

	t.Run("delivery failure gets 502", func(t *testing.T) {
		fx := newServerFixture(t, nil)
		fx.mailer.failing = true

		rec := doJSON(t, fx, http.MethodPost, "/auth/magic-link",
			MagicLinkRequest{Email: "maria@example.com"}, false)
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("empty email gets 400", func(t *testing.T) {
		fx := newServerFixture(t, nil)

		rec := doJSON(t, fx, http.MethodPost, "/auth/magic-link",
			MagicLinkRequest{Email: "  "}, false)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, fx.mailer.sends)
	})
}

func TestVerifyEndpoint(t *testing.T) {
	t.Run("valid token sets cookie and redirects", func(t *testing.T) {
		fx := newServerFixture(t, nil)

		rec := doJSON(t, fx, http.MethodGet, "/auth/verify?token=valid-token", nil, false)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
		assert.Equal(t, "new-bearer-token", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("invalid token gets 401", func(t *testing.T) {
		fx := newServerFixture(t, nil)

		rec := doJSON(t, fx, http.MethodGet, "/auth/verify?token=forged", nil, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("missing token gets 400", func(t *testing.T) {
		fx := newServerFixture(t, nil)

		rec := doJSON(t, fx, http.MethodGet, "/auth/verify", nil, false)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWhoAmIEndpoint(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		fx := newServerFixture(t, adminPrincipal())

		rec := doJSON(t, fx, http.MethodGet, "/api/auth/whoami", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp WhoamiResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "admin@example.com", resp.User.Email)
		assert.Equal(t, models.RoleAdmin, resp.User.Role)
		assert.Equal(t, "sess-admin", resp.SessionID)
	})

	t.Run("anonymous gets 401", func(t *testing.T) {
		fx := newServerFixture(t, nil)

		rec := doJSON(t, fx, http.MethodGet, "/api/auth/whoami", nil, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	t.Run("revokes session and clears cookie", func(t *testing.T) {
		fx := newServerFixture(t, adminPrincipal())

		rec := doJSON(t, fx, http.MethodPost, "/auth/logout", nil, true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"sess-admin"}, fx.iam.revokedIDs)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.True(t, cookies[0].Expires.Before(time.Now()))
	})

	t.Run("anonymous logout still succeeds", func(t *testing.T) {
		fx := newServerFixture(t, nil)

		rec := doJSON(t, fx, http.MethodPost, "/auth/logout", nil, false)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, fx.iam.revokedIDs)
	})
}

func TestHealthEndpoint(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := doJSON(t, fx, http.MethodGet, "/health", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/", safeRedirect(""))
	assert.Equal(t, "/", safeRedirect("https://evil.example"))
	assert.Equal(t, "/", safeRedirect("//evil.example"))
	assert.Equal(t, "/groups", safeRedirect("/groups"))
}
