package usecase

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

//go:embed default_agents.yaml
var defaultAgentsData []byte

type DefaultAgent struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Avatar   string `yaml:"avatar"`
}

func parseDefaultAgents(data []byte) ([]DefaultAgent, error) {
	var agents []DefaultAgent
	if err := yaml.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default agents: %w", err)
	}
	for i, a := range agents {
		if a.Email == "" || a.Password == "" {
			return nil, fmt.Errorf("default agent %d: email and password are required", i)
		}
	}
	return agents, nil
}

// SeedAgents creates the bundled agent accounts that do not exist yet.
func SeedAgents(conf *config.Config, userRepo mongodb.UserRepository) error {
	if !conf.Chat.SeedAgents {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agents, err := parseDefaultAgents(defaultAgentsData)
	if err != nil {
		return err
	}
	log.Debugw(ctx, "Loaded agents from YAML", "count", len(agents))

	for _, agent := range agents {
		_, err := userRepo.GetByEmail(ctx, agent.Email)
		if err == nil {
			log.Debugw(ctx, "Agent already exists", "email", agent.Email)
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to check existing agent: %w", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(agent.Password), conf.Auth.BcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password of '%s': %w", agent.Email, err)
		}
		user := &models.User{
			Username:     agent.Username,
			Name:         agent.Name,
			Email:        agent.Email,
			PasswordHash: string(hash),
			Avatar:       agent.Avatar,
			IsActive:     true,
		}
		if err := userRepo.Create(ctx, user); err != nil && !errors.Is(err, models.ErrDuplicate) {
			return fmt.Errorf("failed to create agent '%s': %w", agent.Email, err)
		}
		log.Infow(ctx, "Created default agent", "email", agent.Email)
	}
	return nil
}
