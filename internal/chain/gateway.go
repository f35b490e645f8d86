package chain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/openpayroll/batchpay/internal/domain"
)

const (
	defaultGatewayTimeout = 15 * time.Second
	defaultPollInterval   = 3 * time.Second
)

type submitBatchRequest struct {
	Recipients []string `json:"recipients"`
	Amounts    []string `json:"amounts"`
	DueDate    int64    `json:"dueDate"`
}

type submitBatchResponse struct {
	TxHash string `json:"txHash"`
	Error  string `json:"error"`
}

type confirmationResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// WalletGateway talks to the wallet service that holds the operator's signer
// and fronts the payment contract.
type WalletGateway struct {
	client       *resty.Client
	baseURL      string
	pollInterval time.Duration
}

func NewWalletGateway(baseURL string) (*WalletGateway, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewWalletGatewayWithClient(baseURL, client, defaultPollInterval)
}

func NewWalletGatewayWithClient(baseURL string, client *resty.Client, pollInterval time.Duration) (*WalletGateway, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("wallet gateway url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid wallet gateway url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &WalletGateway{
		client:       client,
		baseURL:      trimmed,
		pollInterval: pollInterval,
	}, nil
}

func (g *WalletGateway) SubmitBatch(ctx context.Context, recipients, amounts []string, dueDate int64) (string, error) {
	if len(recipients) == 0 || len(recipients) != len(amounts) {
		return "", fmt.Errorf("%w: recipients and amounts must be non-empty parallel sequences", domain.ErrValidation)
	}

	var result submitBatchResponse
	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(submitBatchRequest{Recipients: recipients, Amounts: amounts, DueDate: dueDate}).
		SetResult(&result).
		SetError(&result).
		Post(g.baseURL + "/v1/batches")
	if err != nil {
		return "", &SubmissionError{Stage: StageRejected, Message: "wallet request failed", Cause: err}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return "", &SubmissionError{
			Stage:      StageRejected,
			StatusCode: statusCode,
			Message:    gatewayErrorMessage(result.Error, response.String()),
		}
	}
	if strings.TrimSpace(result.TxHash) == "" {
		return "", &SubmissionError{Stage: StageRejected, Message: "wallet returned no transaction hash"}
	}

	return result.TxHash, nil
}

func (g *WalletGateway) AwaitConfirmation(ctx context.Context, txHash string) (domain.TxStatus, error) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		status, err := g.readConfirmation(ctx, txHash)
		if err != nil {
			return "", err
		}

		switch status {
		case domain.TxStatusConfirmed:
			return domain.TxStatusConfirmed, nil
		case domain.TxStatusFailed:
			return domain.TxStatusFailed, &SubmissionError{
				Stage:   StageReverted,
				Message: fmt.Sprintf("transaction %s reverted", txHash),
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *WalletGateway) readConfirmation(ctx context.Context, txHash string) (domain.TxStatus, error) {
	var result confirmationResponse
	response, err := g.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Get(g.baseURL + "/v1/batches/" + url.PathEscape(txHash))
	if err != nil {
		return "", fmt.Errorf("confirmation request failed: %w", err)
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("confirmation returned status %d: %s", statusCode, gatewayErrorMessage(result.Error, response.String()))
	}

	status := domain.TxStatus(strings.ToLower(strings.TrimSpace(result.Status)))
	if !status.IsValid() {
		return "", fmt.Errorf("confirmation returned unknown status %q", result.Status)
	}
	return status, nil
}

func (g *WalletGateway) ReadDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	response, err := g.client.R().
		SetContext(ctx).
		SetResult(&stats).
		Get(g.baseURL + "/v1/stats")
	if err != nil {
		return nil, fmt.Errorf("stats request failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("stats returned status %d", response.StatusCode())
	}
	return &stats, nil
}

func gatewayErrorMessage(apiError, body string) string {
	if msg := strings.TrimSpace(apiError); msg != "" {
		return msg
	}
	return strings.TrimSpace(body)
}
