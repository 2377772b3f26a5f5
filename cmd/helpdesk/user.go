package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deskline/helpdesk/internal/auth"
	"github.com/deskline/helpdesk/internal/config"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/persistence"
	"github.com/deskline/helpdesk/internal/repository"
	"github.com/deskline/helpdesk/pkg/util/errorutil"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var (
	userName     string
	userEmail    string
	userPassword string
	userRole     string
	userActive   bool
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account, e.g. the first SUPER_ADMIN",
	RunE:  runUserCreate,
}

func init() {
	flags := userCreateCmd.Flags()
	flags.StringVar(&userName, "name", "", "display name")
	flags.StringVar(&userEmail, "email", "", "login email")
	flags.StringVar(&userPassword, "password", "", "initial password")
	flags.StringVar(&userRole, "role", string(domain.RoleCustomer), "CUSTOMER, AGENT, MANAGER, ADMIN or SUPER_ADMIN")
	_ = userCreateCmd.MarkFlagRequired("name")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	activeFlags := userSetActiveCmd.Flags()
	activeFlags.StringVar(&userEmail, "email", "", "login email")
	activeFlags.BoolVar(&userActive, "active", true, "whether the account may log in")
	_ = userSetActiveCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd, userSetActiveCmd)
}

var userSetActiveCmd = &cobra.Command{
	Use:   "set-active",
	Short: "Enable or disable an account",
	RunE:  runUserSetActive,
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	role := domain.Role(strings.ToUpper(strings.TrimSpace(userRole)))
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", userRole)
	}
	if len(userPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	cfg, pg, err := connect(cmd)
	if err != nil {
		return err
	}
	defer pg.Close()

	hash, err := auth.HashPassword(userPassword, cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Name:         strings.TrimSpace(userName),
		Email:        strings.ToLower(strings.TrimSpace(userEmail)),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := repository.NewUserRepository(pg.PoolHandle()).Create(cmd.Context(), user); err != nil {
		return errorutil.MapStorage(err, "user", map[string]any{"email": user.Email})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}

func runUserSetActive(cmd *cobra.Command, _ []string) error {
	_, pg, err := connect(cmd)
	if err != nil {
		return err
	}
	defer pg.Close()

	users := repository.NewUserRepository(pg.PoolHandle())
	email := strings.ToLower(strings.TrimSpace(userEmail))
	user, err := users.GetByEmail(cmd.Context(), email)
	if err != nil {
		return errorutil.MapStorage(err, "user", map[string]any{"email": email})
	}
	user.Active = userActive
	if err := users.Update(cmd.Context(), user); err != nil {
		return errorutil.MapStorage(err, "user", map[string]any{"email": email})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", user.Email, user.Active)
	return nil
}

func connect(cmd *cobra.Command) (*config.Config, *persistence.Postgres, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return cfg, pg, nil
}
