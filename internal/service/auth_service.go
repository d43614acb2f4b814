package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Roles de los actores del pedido
const (
	ScopeUser     = "user"
	ScopeProvider = "provider"
	ScopeRider    = "rider"
	ScopeAdmin    = "admin"
)

// Servicio que consulta al microservicio externo de identidad.
type AuthService struct {
	authURL string
	client  *http.Client
}

// Actor es la identidad ya validada que el middleware deja en el contexto.
type Actor struct {
	ID    string
	Name  string
	Scope string
}

type AuthUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Scope   string `json:"scope"`
	Login   string `json:"login"`
	Enabled bool   `json:"enabled"`
}

// Cuentas completas de los actores, para las precondiciones de pago y los
// snapshots. Solo lectura: vienen del servicio de identidad.
type UserAccount struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Address2    string `json:"address2"`
	CustomerID  string `json:"customerID"`
	CardID      string `json:"cardID"`
}

type ProviderAccount struct {
	ProviderID    string `json:"provider_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	PhoneNumber   string `json:"phoneNumber"`
	Address       string `json:"address"`
	Address2      string `json:"address2"`
	StripeAccount string `json:"stripe_account"`
}

type RiderAccount struct {
	RiderID     string `json:"rider_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

func NewAuthService(authURL string) *AuthService {
	return &AuthService{
		authURL: authURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Valida el token consultando a /users/current del microservicio de identidad.
func (a *AuthService) ValidateToken(token string) (*AuthUser, error) {
	req, err := http.NewRequest("GET", fmt.Sprintf("%s/users/current", a.authURL), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("invalid token")
	}

	var user AuthUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}

	if !user.Enabled {
		return nil, errors.New("user disabled")
	}

	return &user, nil
}

func (a *AuthService) ResolveUser(ctx context.Context, userID string) (*UserAccount, error) {
	var account UserAccount
	if err := a.getJSON(ctx, fmt.Sprintf("%s/users/%s", a.authURL, userID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (a *AuthService) ResolveProvider(ctx context.Context, providerID string) (*ProviderAccount, error) {
	var account ProviderAccount
	if err := a.getJSON(ctx, fmt.Sprintf("%s/providers/%s", a.authURL, providerID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (a *AuthService) ResolveRider(ctx context.Context, riderID string) (*RiderAccount, error) {
	var account RiderAccount
	if err := a.getJSON(ctx, fmt.Sprintf("%s/riders/%s", a.authURL, riderID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (a *AuthService) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("actor not found: %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth service status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
