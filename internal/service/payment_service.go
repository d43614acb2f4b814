package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Cliente del procesador de pagos externo. Solo dos operaciones: cobrar y
// consultar los últimos cuatro dígitos para enmascarar la tarjeta.
type PaymentService struct {
	paymentURL string
	client     *http.Client
}

func NewPaymentService(paymentURL string) *PaymentService {
	return &PaymentService{
		paymentURL: paymentURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type chargeRequest struct {
	Amount     float64 `json:"amount"`
	CustomerID string  `json:"customerId"`
	Account    string  `json:"account"`
}

type chargeResponse struct {
	Status string `json:"status"` // succeeded | declined
}

// Charge devuelve el estado del cobro tal y como lo reporta el procesador.
func (p *PaymentService) Charge(ctx context.Context, amount float64, customerID, account string) (string, error) {
	body, err := json.Marshal(chargeRequest{Amount: amount, CustomerID: customerID, Account: account})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/charges", p.paymentURL), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment service status %d", resp.StatusCode)
	}

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Status, nil
}

type cardInfoResponse struct {
	Last4 string `json:"last4"`
}

func (p *PaymentService) LastFour(ctx context.Context, customerID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/customers/%s/card", p.paymentURL, customerID), nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment service status %d", resp.StatusCode)
	}

	var out cardInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Last4, nil
}
