// Package walletd is the client of the wallet-as-a-service API holding
// the robots' custodial wallets. The backend never touches key material,
// walletd signs everything server-side.
package walletd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var ErrUnavailable = errors.New("walletd: service unavailable")

type Wallet struct {
	Address string `json:"address"`
}

// Creator provisions a fresh custodial wallet.
type Creator = func() (Wallet, error)

// BalanceProvider returns the USDC balance of an address as a decimal
// string.
type BalanceProvider = func(address string) (string, error)

// Transferrer moves amount from one custodial address to another and
// returns the transaction hash.
type Transferrer = func(from string, to string, amount string) (string, error)

func RestCreator(baseUrl string, apiKey string) Creator {
	return func() (Wallet, error) {
		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodPost)
		req.SetRequestURI(baseUrl + "/v1/wallets")
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+apiKey)

		if err := agent.Parse(); err != nil {
			return Wallet{}, fmt.Errorf("agent parse: %w", err)
		}
		statusCode, body, errs := agent.Bytes()
		if len(errs) != 0 {
			return Wallet{}, fmt.Errorf("%w: %v", ErrUnavailable, errs)
		}
		if statusCode != fiber.StatusCreated && statusCode != fiber.StatusOK {
			return Wallet{}, fmt.Errorf("%w: status code %d: %s", ErrUnavailable, statusCode, string(body))
		}

		var wallet Wallet
		if err := json.Unmarshal(body, &wallet); err != nil {
			return Wallet{}, fmt.Errorf("unmarshal body: %w", err)
		}
		if wallet.Address == "" {
			return Wallet{}, fmt.Errorf("%w: empty wallet address", ErrUnavailable)
		}
		return wallet, nil
	}
}

func RestBalanceProvider(baseUrl string, apiKey string) BalanceProvider {
	return func(address string) (string, error) {
		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodGet)
		req.SetRequestURI(baseUrl + "/v1/wallets/" + address + "/balance")
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+apiKey)

		if err := agent.Parse(); err != nil {
			return "", fmt.Errorf("agent parse: %w", err)
		}
		statusCode, body, errs := agent.Bytes()
		if len(errs) != 0 {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, errs)
		}
		if statusCode != fiber.StatusOK {
			return "", fmt.Errorf("%w: status code %d: %s", ErrUnavailable, statusCode, string(body))
		}

		var response struct {
			Balance string `json:"balance"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			return "", fmt.Errorf("unmarshal body: %w", err)
		}
		return response.Balance, nil
	}
}

func RestTransferrer(baseUrl string, apiKey string) Transferrer {
	return func(from string, to string, amount string) (string, error) {
		payload, err := json.Marshal(map[string]string{
			"from":   from,
			"to":     to,
			"amount": amount,
		})
		if err != nil {
			return "", fmt.Errorf("marshal transfer: %w", err)
		}

		agent := fiber.AcquireAgent()
		defer fiber.ReleaseAgent(agent)

		req := agent.Request()
		req.Header.SetMethod(fiber.MethodPost)
		req.SetRequestURI(baseUrl + "/v1/transfers")
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+apiKey)
		req.Header.SetContentType(fiber.MIMEApplicationJSON)
		req.SetBody(payload)

		if err := agent.Parse(); err != nil {
			return "", fmt.Errorf("agent parse: %w", err)
		}
		statusCode, body, errs := agent.Bytes()
		if len(errs) != 0 {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, errs)
		}
		if statusCode != fiber.StatusCreated && statusCode != fiber.StatusOK {
			return "", fmt.Errorf("%w: status code %d: %s", ErrUnavailable, statusCode, string(body))
		}

		var response struct {
			TxHash string `json:"txHash"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			return "", fmt.Errorf("unmarshal body: %w", err)
		}
		return response.TxHash, nil
	}
}

// Mock implementations for tests.

func MockCreator(address string, err error) Creator {
	return func() (Wallet, error) {
		return Wallet{Address: address}, err
	}
}

func MockBalanceProvider(balance string, err error) BalanceProvider {
	return func(address string) (string, error) {
		return balance, err
	}
}

func MockTransferrer(txHash string, err error) Transferrer {
	return func(from string, to string, amount string) (string, error) {
		return txHash, err
	}
}
