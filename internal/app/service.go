package app

import (
	"context"
	"time"

	"verdant/api/internal/auth"
	"verdant/api/internal/authpw"
	"verdant/api/internal/avatar"
	"verdant/api/internal/config"
	"verdant/api/internal/feed"
	"verdant/api/internal/garden"
	"verdant/api/internal/live"
	"verdant/api/internal/naturebot"
	"verdant/api/internal/openai"
	"verdant/api/internal/profile"
	"verdant/api/internal/search"
	"verdant/api/internal/store"
	"verdant/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Username     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// pgSessions stores refresh sessions in Postgres when no Redis is configured.
type pgSessions struct {
	pg *store.PostgresStore
}

func (p *pgSessions) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return p.pg.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (p *pgSessions) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	return p.pg.LookupRefreshSession(ctx, tokenHash)
}

func (p *pgSessions) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return p.pg.RevokeRefreshSession(ctx, tokenHash)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore

	accounts *authpw.Service
	feed     *feed.Service
	garden   *garden.Service
	profile  *profile.Service
	bot      *naturebot.Service
	avatars  *avatar.Store
}

func New(cfg config.Config, dataStore *store.PostgresStore, hub *live.Hub, searchService *search.Service, ai *openai.Client, avatars *avatar.Store) *Service {
	return NewWithSessionStore(cfg, dataStore, &pgSessions{pg: dataStore}, hub, searchService, ai, avatars)
}

func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, hub *live.Hub, searchService *search.Service, ai *openai.Client, avatars *avatar.Store) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		accounts: authpw.NewService(dataStore, cfg.DefaultLanguage),
		feed:     feed.NewService(dataStore, hub, searchService),
		garden:   garden.NewService(dataStore, hub, garden.NewAICareSource(ai)),
		profile:  profile.NewService(dataStore, hub),
		bot:      naturebot.NewService(ai),
		avatars:  avatars,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Register creates the account and its profile in one write, then signs the
// new user in. A registration either fully exists or does not exist at all.
func (s *Service) Register(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.accounts.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.accounts.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.Username,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// AskBot returns the chatbot's reply. Invalid input short-circuits to the
// matching chat message without a network call; the reply is always a
// displayable string, never an error.
func (s *Service) AskBot(ctx context.Context, question string) string {
	if ok, msg := naturebot.ValidateInput(question, s.bot != nil); !ok {
		return msg
	}
	return s.bot.Ask(ctx, question)
}
