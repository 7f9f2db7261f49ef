package services

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const DefaultTokenTTL = 12 * time.Hour

type StaffAccount struct {
	Username     string
	PasswordHash string
	Role         models.Role
}

// ParseStaffAccounts reads "user:bcryptHash:role" records separated by ';'.
// bcrypt hashes contain no ':' so the split is unambiguous.
func ParseStaffAccounts(raw string) (map[string]StaffAccount, error) {
	accounts := make(map[string]StaffAccount)
	for _, record := range strings.Split(raw, ";") {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		parts := strings.Split(record, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("staff account %q: want user:hash:role", record)
		}
		role, err := models.ParseRole(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("staff account %q: %w", parts[0], err)
		}
		if !role.IsStaff() {
			return nil, fmt.Errorf("staff account %q: role %s is not a staff role", parts[0], role)
		}
		username := strings.TrimSpace(parts[0])
		accounts[username] = StaffAccount{
			Username:     username,
			PasswordHash: strings.TrimSpace(parts[1]),
			Role:         role,
		}
	}
	return accounts, nil
}

// CredentialStore authenticates staff and issues session tokens.
type CredentialStore struct {
	accounts map[string]StaffAccount
	secret   []byte
	ttl      time.Duration
	now      Clock
}

func NewCredentialStore(accounts map[string]StaffAccount, secret []byte, ttl time.Duration) *CredentialStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &CredentialStore{accounts: accounts, secret: secret, ttl: ttl, now: time.Now}
}

func (c *CredentialStore) Authenticate(username, password string) (models.Role, error) {
	account, ok := c.accounts[username]
	if !ok {
		return "", ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", ErrUnauthorized
	}
	return account.Role, nil
}

// Login authenticates and returns a signed token for the session.
func (c *CredentialStore) Login(username, password string) (models.Role, string, error) {
	role, err := c.Authenticate(username, password)
	if err != nil {
		utils.ErrorLogger.Printf("Failed login for %q", username)
		return "", "", err
	}
	token, err := utils.GenerateToken(c.secret, username, string(role), c.ttl, c.now())
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return role, token, nil
}

// VerifyToken returns the staff identity carried by a token.
func (c *CredentialStore) VerifyToken(token string) (string, models.Role, error) {
	claims, err := utils.ParseToken(c.secret, token)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	role, err := models.ParseRole(claims.Role)
	if err != nil || !role.IsStaff() {
		return "", "", fmt.Errorf("%w: token carries no staff role", ErrUnauthorized)
	}
	if _, ok := c.accounts[claims.Username]; !ok {
		return "", "", fmt.Errorf("%w: account %q no longer exists", ErrUnauthorized, claims.Username)
	}
	return claims.Username, role, nil
}
