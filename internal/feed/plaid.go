// Package feed retrieves bank transactions from external providers.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/model"
	"github.com/petrel-io/ledgermatch/internal/service"
)

// PlaidConfig holds Plaid API configuration.
type PlaidConfig struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
	CompanyID   string
}

// Validate ensures all required fields are present.
func (c *PlaidConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}
	switch c.Environment {
	case "sandbox", "production":
		return nil
	case "":
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	default:
		return fmt.Errorf("%w: plaid environment must be sandbox or production", common.ErrInvalidConfig)
	}
}

// PlaidFeed implements service.TransactionFetcher against the Plaid API.
type PlaidFeed struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	accessToken string
	companyID   string
	retryOpts   service.RetryOptions
}

// NewPlaidFeed creates a feed from the given configuration.
func NewPlaidFeed(cfg PlaidConfig) (*PlaidFeed, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &PlaidFeed{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		companyID:   cfg.CompanyID,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// FetchTransactions pulls transactions for one account within a date range,
// paging through the API until exhausted. The result is ready for the
// importer: source is set to api and amounts follow the bank convention
// where debits are negative.
func (f *PlaidFeed) FetchTransactions(ctx context.Context, accountID string, from, to time.Time) ([]model.BankTransaction, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if from.After(to) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	f.logger.Info("Fetching transactions from Plaid",
		"bank_account_id", accountID,
		"start_date", from.Format("2006-01-02"),
		"end_date", to.Format("2006-01-02"))

	var fetched []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				f.accessToken,
				from.Format("2006-01-02"),
				to.Format("2006-01-02"),
			)
			options := plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			}
			if accountID != "" {
				options.AccountIds = &[]string{accountID}
			}
			request.SetOptions(options)

			resp, _, err := f.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				if plaidError := extractPlaidError(err); plaidError != nil {
					if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
						f.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
						return &common.RetryableError{Err: err, Retryable: true}
					}
					return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
				}
				return fmt.Errorf("failed to fetch transactions: %w", err)
			}

			page = resp.GetTransactions()
			return nil
		}, f.retryOpts)

		if retryErr != nil {
			return nil, retryErr
		}

		fetched = append(fetched, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	f.logger.Info("Fetched all transactions", "count", len(fetched))

	transactions := make([]model.BankTransaction, 0, len(fetched))
	for _, pt := range fetched {
		transactions = append(transactions, f.mapTransaction(pt))
	}
	return transactions, nil
}

// ListAccounts fetches the account IDs linked to the access token.
func (f *PlaidFeed) ListAccounts(ctx context.Context) ([]string, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	var accounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(f.accessToken)
		resp, _, err := f.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			if plaidError := extractPlaidError(err); plaidError != nil {
				if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
					f.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
					return &common.RetryableError{Err: err, Retryable: true}
				}
				return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
			}
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}
		accounts = resp.GetAccounts()
		return nil
	}, f.retryOpts)

	if retryErr != nil {
		return nil, retryErr
	}

	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.GetAccountId())
	}
	return ids, nil
}

// mapTransaction converts a Plaid transaction into a bank transaction.
// Plaid reports outflows as positive amounts; the sign is flipped to the
// statement convention where debits are negative.
func (f *PlaidFeed) mapTransaction(pt plaid.Transaction) model.BankTransaction {
	date, err := time.Parse("2006-01-02", pt.GetDate())
	if err != nil {
		f.logger.Error("Failed to parse transaction date", "date", pt.GetDate(), "error", err)
		date = time.Now()
	}

	description := pt.GetMerchantName()
	if description == "" {
		description = pt.GetName()
	}

	category := ""
	if categories := pt.GetCategory(); len(categories) > 0 {
		category = categories[0]
	}

	currency := pt.GetIsoCurrencyCode()
	if currency == "" {
		currency = "EUR"
	}

	return model.BankTransaction{
		Date:        date,
		AccountID:   pt.GetAccountId(),
		CompanyID:   f.companyID,
		Amount:      -pt.GetAmount(),
		Currency:    currency,
		Description: description,
		Reference:   pt.GetTransactionId(),
		Category:    category,
		Source:      model.SourceAPI,
	}
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

// Ensure PlaidFeed implements TransactionFetcher.
var _ service.TransactionFetcher = (*PlaidFeed)(nil)
