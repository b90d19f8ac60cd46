// Command bootstrap-user creates an account, or reuses the one registered
// under the given email, and prints a fresh access token for it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/taskshare/taskshare/internal/repository"
	"github.com/taskshare/taskshare/internal/service"
)

type output struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Created  bool   `json:"created"`
	Token    string `json:"token"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@taskshare.local", "Account email")
		name        = flag.String("name", "Administrator", "Display name for a new account")
		userName    = flag.String("user-name", "admin", "Handle for a new account")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Password for a new account")
		tokenName   = flag.String("token-name", "bootstrap", "Label stored with the token")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	outFormat := strings.ToLower(*format)
	if outFormat != "plain" && outFormat != "json" {
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	svc := service.NewAuthService(service.AuthConfig{
		Store:  repo,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	})

	out, err := bootstrap(ctx, repo, svc, service.RegisterInput{
		Name:            *name,
		Email:           *email,
		Handle:          *userName,
		Password:        *password,
		ConfirmPassword: *password,
	}, *tokenName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if outFormat == "plain" {
		fmt.Println(out.Token)
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func bootstrap(ctx context.Context, repo *repository.Repository, svc *service.AuthService, in service.RegisterInput, tokenName string) (*output, error) {
	existing, err := repo.GetUserByEmail(ctx, strings.TrimSpace(in.Email))
	switch {
	case err == nil:
		token, err := svc.IssueToken(ctx, existing.ID, tokenName)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		return &output{UserID: existing.ID, Email: existing.Email, UserName: existing.Handle, Token: token}, nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if in.Password == "" {
		return nil, errors.New("no account with that email; pass -password or BOOTSTRAP_PASSWORD to create one")
	}

	session, err := svc.Register(ctx, in)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%s: %s", verr.Field, verr.Message)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &output{
		UserID:   session.User.ID,
		Email:    session.User.Email,
		UserName: session.User.Handle,
		Created:  true,
		Token:    session.Token,
	}, nil
}
