// tokenctl creates a session in the Postgres session authority and prints a signed access token for it.
// It is a development helper standing in for the identity provider's login flow.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lexgate/backend/internal/config"
	"lexgate/backend/internal/db"
	"lexgate/backend/internal/identity"
	"lexgate/backend/internal/logger"
	"lexgate/backend/internal/platform/rbac"
	"lexgate/backend/internal/security"
	sessiondomain "lexgate/backend/internal/session/domain"
	sessionrepo "lexgate/backend/internal/session/repository"
)

type issueCmd struct {
	User   string `help:"User id (sub claim)." required:""`
	Role   string `help:"Role name." default:"attorney"`
	Tenant string `help:"Tenant id; empty means pending provisioning."`
}

func (c *issueCmd) Run(ctx context.Context, cfg *config.Config) error {
	role, err := rbac.ParseRole(c.Role)
	if err != nil {
		return err
	}
	if cfg.JWTPrivateKey == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY is required to sign tokens")
	}
	tokens, err := security.LoadTokenProvider(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	if err != nil {
		return err
	}

	pg, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	sess := &sessiondomain.Session{
		ID:        uuid.NewString(),
		UserID:    c.User,
		TenantID:  c.Tenant,
		Status:    sessiondomain.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := sessionrepo.NewPostgresRepository(pg).Create(ctx, sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	token, _, expiresAt, err := tokens.IssueAccess(identity.Principal{
		UserID:    c.User,
		SessionID: sess.ID,
		Role:      role.String(),
		TenantID:  c.Tenant,
	})
	if err != nil {
		return err
	}
	log.Info().Str("session_id", sess.ID).Time("expires_at", expiresAt).Msg("access token issued")
	fmt.Println(token)
	return nil
}

var cli struct {
	Issue issueCmd `cmd:"" default:"withargs" help:"Create a session and print an access token."`
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	kctx := kong.Parse(&cli,
		kong.Description("Issue development access tokens."),
		kong.BindTo(ctx, (*context.Context)(nil)))

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)
	logger.Setup(cfg.LogLevel, true)
	kctx.FatalIfErrorf(kctx.Run(cfg))
}
